package gateway

import (
	"log"
	"os"

	"github.com/google/uuid"

	"farmgate/protocol"
)

// Bootstrapper registers this client with the daemon and starts the backend
// services it depends on. Runs once per successful connection open.
type Bootstrapper struct {
	sender    Sender
	localTest bool
	instance  string
}

// NewBootstrapper creates a bootstrapper. When localTest is set the simulator
// is started in place of the real full node, farmer, and harvester.
func NewBootstrapper(sender Sender, localTest bool) *Bootstrapper {
	return &Bootstrapper{
		sender:    sender,
		localTest: localTest,
		instance:  uuid.New().String(),
	}
}

// Run issues the registration and startup sequence. Responses flow back
// through the router, where "already running" counts as success.
func (b *Bootstrapper) Run() {
	hostname, _ := os.Hostname()
	b.call(protocol.CmdRegisterService, &protocol.RegisterService{
		Service:  protocol.OriginUI,
		Instance: b.instance,
		Hostname: hostname,
	})
	b.call(protocol.CmdRegisterService, &protocol.RegisterService{
		Service:  protocol.ServicePlotQueue,
		Instance: b.instance,
	})

	b.start(protocol.ServiceWallet)
	if b.localTest {
		b.start(protocol.ServiceSimulator)
	} else {
		b.start(protocol.ServiceFullNode)
		b.start(protocol.ServiceFarmer)
		b.start(protocol.ServiceHarvester)
	}
}

func (b *Bootstrapper) start(service string) {
	b.call(protocol.CmdStartService, &protocol.ServiceRequest{Service: service})
}

func (b *Bootstrapper) call(command string, payload any) {
	if err := b.sender.Call(command, protocol.ServiceDaemon, payload, nil); err != nil {
		log.Printf("bootstrap: %s: %v", command, err)
	}
}
