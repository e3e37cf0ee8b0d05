package protocol

// OriginUI is the origin stamped on every envelope this client sends.
const OriginUI = "wallet_ui"

// Backend service names used as envelope origins and destinations.
const (
	ServiceDaemon    = "daemon"
	ServiceWallet    = "wallet"
	ServiceFullNode  = "full_node"
	ServiceFarmer    = "farmer"
	ServiceHarvester = "harvester"
	ServicePlotter   = "plotter"
	ServiceSimulator = "simulator"

	// ServicePlotQueue is the plotter's queue channel, registered alongside
	// the client itself at bootstrap.
	ServicePlotQueue = "plot_queue"
)

// Command names.
const (
	CmdPing            = "ping"
	CmdRegisterService = "register_service"
	CmdStartService    = "start_service"
	CmdStopService     = "stop_service"
	CmdStateChanged    = "state_changed"

	CmdGetWallets      = "get_wallets"
	CmdGetBalance      = "get_wallet_balance"
	CmdGetTransactions = "get_transactions"
	CmdGetNextAddress  = "get_next_address"
	CmdGetColourName   = "get_colour_name"
	CmdGetColourInfo   = "get_colour_info"

	CmdGetPublicKeys = "get_public_keys"
	CmdLogIn         = "log_in"
	CmdLoggedIn      = "logged_in"
	CmdAddKey        = "add_key"
	CmdDeleteKey     = "delete_key"
	CmdDeleteAllKeys = "delete_all_keys"

	CmdGetConnections     = "get_connections"
	CmdGetBlockchainState = "get_blockchain_state"
	CmdGetLatestBlocks    = "get_latest_block_headers"
	CmdGetHeightInfo      = "get_height_info"
	CmdGetSyncStatus      = "get_sync_status"
	CmdGetChallenges      = "get_challenges"

	CmdGetPlots           = "get_plots"
	CmdGetPlotDirectories = "get_plot_directories"
	CmdGetPlotQueue       = "get_plot_queue"
)

// Wallet types reported by get_wallets.
const (
	WalletTypeStandard    = "STANDARD_WALLET"
	WalletTypeRateLimited = "RATE_LIMITED"
	WalletTypeColoured    = "COLOURED_COIN"
)

// Sub-states carried by state_changed events.
const (
	StateCoinAdded          = "coin_added"
	StateCoinRemoved        = "coin_removed"
	StatePendingTransaction = "pending_transaction"
	StateSyncChanged        = "sync_changed"
	StateNewBlock           = "new_block"
)
