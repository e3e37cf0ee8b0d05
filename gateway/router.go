package gateway

import (
	"encoding/json"
	"log"
	"strings"

	"farmgate/protocol"
)

// LoopStarter starts the ping-until-connected loop for a backend service.
type LoopStarter interface {
	StartLoop(service string)
}

// Router turns each inbound envelope into follow-up commands and state
// actions. Every envelope is recorded first via INCOMING_MESSAGE, then routed
// by command, and the generic failure check runs last regardless of which
// branch fired.
type Router struct {
	sender     Sender
	dispatcher Dispatcher
	state      StateReader
	loops      LoopStarter
}

// NewRouter creates a router over the given collaborators.
func NewRouter(sender Sender, dispatcher Dispatcher, state StateReader, loops LoopStarter) *Router {
	return &Router{
		sender:     sender,
		dispatcher: dispatcher,
		state:      state,
		loops:      loops,
	}
}

// Route handles one decoded inbound envelope.
func (r *Router) Route(env *protocol.Envelope) {
	r.dispatcher.Dispatch(Action{Type: ActionIncomingMessage, Envelope: env})

	switch env.Command {
	case protocol.CmdPing:
		r.handlePing(env)
	case protocol.CmdDeleteKey, protocol.CmdDeleteAllKeys:
		if r.succeeded(env) {
			r.call(protocol.CmdGetPublicKeys, protocol.ServiceWallet, nil)
		}
	case protocol.CmdAddKey:
		r.handleAddKey(env)
	case protocol.CmdLogIn, protocol.CmdLoggedIn:
		if r.succeeded(env) {
			r.call(protocol.CmdGetWallets, protocol.ServiceWallet, nil)
		}
	case protocol.CmdGetWallets:
		r.handleWallets(env)
	case protocol.CmdStateChanged:
		r.handleStateChanged(env)
	case protocol.CmdStartService, protocol.CmdStopService:
		r.handleServiceChange(env)
	}

	r.surfaceFailure(env)
}

// handlePing fans out the per-service status refresh keyed on the replying
// service.
func (r *Router) handlePing(env *protocol.Envelope) {
	switch env.Origin {
	case protocol.ServiceWallet:
		r.call(protocol.CmdGetConnections, protocol.ServiceWallet, nil)
		r.call(protocol.CmdGetPublicKeys, protocol.ServiceWallet, nil)
	case protocol.ServiceFullNode:
		r.call(protocol.CmdGetBlockchainState, protocol.ServiceFullNode, nil)
		r.call(protocol.CmdGetConnections, protocol.ServiceFullNode, nil)
		r.call(protocol.CmdGetLatestBlocks, protocol.ServiceFullNode, nil)
	case protocol.ServiceFarmer:
		r.call(protocol.CmdGetChallenges, protocol.ServiceFarmer, nil)
		r.call(protocol.CmdGetConnections, protocol.ServiceFarmer, nil)
	case protocol.ServiceHarvester:
		// Plots are expensive to enumerate; skip when already cached.
		if !r.state.PlotsCached() {
			r.call(protocol.CmdGetPlots, protocol.ServiceHarvester, nil)
			r.call(protocol.CmdGetPlotDirectories, protocol.ServiceHarvester, nil)
		}
	}
}

func (r *Router) handleAddKey(env *protocol.Envelope) {
	var key protocol.KeyEvent
	if err := env.DecodeData(&key); err != nil {
		log.Printf("router: add_key payload: %v", err)
		return
	}
	if !key.OK() {
		return
	}
	r.call(protocol.CmdGetPublicKeys, protocol.ServiceWallet, nil)
	if key.Fingerprint != 0 {
		r.call(protocol.CmdLogIn, protocol.ServiceWallet, &protocol.LogIn{Fingerprint: key.Fingerprint})
	}
}

// handleWallets fans out the per-wallet fetches on a get_wallets success.
func (r *Router) handleWallets(env *protocol.Envelope) {
	var list protocol.WalletList
	if err := env.DecodeData(&list); err != nil {
		log.Printf("router: get_wallets payload: %v", err)
		return
	}
	if !list.OK() {
		return
	}

	for _, w := range list.Wallets {
		req := &protocol.WalletRequest{WalletID: w.ID}

		full := true
		if w.Type == protocol.WalletTypeRateLimited {
			// Rate-limited wallets carry their own state as a nested JSON
			// string; balance and address are meaningless until initialized.
			var rl protocol.RateLimitedInfo
			if err := json.Unmarshal([]byte(w.Data), &rl); err != nil {
				log.Printf("router: wallet %d rate-limited data: %v", w.ID, err)
				full = false
			} else {
				full = rl.Initialized
			}
		}

		if full {
			r.call(protocol.CmdGetBalance, protocol.ServiceWallet, req)
		}
		r.call(protocol.CmdGetTransactions, protocol.ServiceWallet, req)
		if full {
			r.call(protocol.CmdGetNextAddress, protocol.ServiceWallet, req)
		}

		if w.Type == protocol.WalletTypeColoured {
			r.call(protocol.CmdGetColourName, protocol.ServiceWallet, req)
			r.call(protocol.CmdGetColourInfo, protocol.ServiceWallet, req)
		}
	}
}

// handleStateChanged refreshes the specific sub-state an event names.
func (r *Router) handleStateChanged(env *protocol.Envelope) {
	var sc protocol.StateChange
	if err := env.DecodeData(&sc); err != nil {
		log.Printf("router: state_changed payload: %v", err)
		return
	}

	if env.Origin == protocol.ServicePlotter {
		r.dispatcher.Dispatch(Action{Type: ActionPlotQueueUpdate, Queue: sc.Queue})
		if sc.State == "state" {
			r.call(protocol.CmdGetPlots, protocol.ServiceHarvester, nil)
		}
		return
	}

	switch sc.State {
	case protocol.StateCoinAdded, protocol.StateCoinRemoved, protocol.StatePendingTransaction:
		req := &protocol.WalletRequest{WalletID: sc.WalletID}
		r.call(protocol.CmdGetBalance, protocol.ServiceWallet, req)
		r.call(protocol.CmdGetTransactions, protocol.ServiceWallet, req)
	case protocol.StateSyncChanged:
		r.call(protocol.CmdGetSyncStatus, protocol.ServiceWallet, nil)
	case protocol.StateNewBlock:
		r.call(protocol.CmdGetHeightInfo, protocol.ServiceWallet, nil)
	}
}

// handleServiceChange reacts to start_service/stop_service outcomes. A
// response whose error says the service is already running counts as success,
// so startup stays idempotent.
func (r *Router) handleServiceChange(env *protocol.Envelope) {
	var resp protocol.ServiceResponse
	if err := env.DecodeData(&resp); err != nil {
		log.Printf("router: %s payload: %v", env.Command, err)
		return
	}
	// Only "already running" counts as success here; other benign errors
	// (not_initialized) mean the service did not start.
	if !resp.OK() && !strings.Contains(resp.Error, "already running") {
		return
	}
	if resp.Service == "" {
		log.Printf("router: %s response without service", env.Command)
		return
	}

	r.loops.StartLoop(resp.Service)

	if env.Command == protocol.CmdStopService && resp.Service == protocol.ServicePlotter {
		r.dispatcher.Dispatch(Action{Type: ActionPlottingStopped})
		r.call(protocol.CmdGetPlotQueue, protocol.ServicePlotter, nil)
	}
}

// surfaceFailure runs last for every envelope: an explicit failure surfaces
// exactly one error dialog unless the error is a known-benign one.
func (r *Router) surfaceFailure(env *protocol.Envelope) {
	var st protocol.ResponseStatus
	if err := env.DecodeData(&st); err != nil {
		return
	}
	if !st.Failed() || st.Benign() {
		return
	}
	r.dispatcher.Dispatch(Action{Type: ActionShowErrorDialog, Message: st.Error})
}

func (r *Router) succeeded(env *protocol.Envelope) bool {
	var st protocol.ResponseStatus
	if err := env.DecodeData(&st); err != nil {
		return false
	}
	return st.OK()
}

// call issues a fire-and-forget command; the response, if any, comes back
// through the normal routing path.
func (r *Router) call(command, destination string, payload any) {
	if err := r.sender.Call(command, destination, payload, nil); err != nil {
		log.Printf("router: %s -> %s: %v", command, destination, err)
	}
}
