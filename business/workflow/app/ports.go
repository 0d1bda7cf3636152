package app

// WatcherFactory builds a BlockWatcher for run parameters supplied at
// invocation time; the chain dependencies are bound at registration.
type WatcherFactory func(params WatcherParams) (*BlockWatcher, error)

// OrchestratorFactory builds an ArbitrageOrchestrator for run parameters
// supplied at invocation time; the venue legs are bound at registration.
type OrchestratorFactory func(params ArbitrageParams) (*ArbitrageOrchestrator, error)
