package app

import (
	"fmt"

	"golang.org/x/oauth2"

	"dealflow/internal/config"
	"dealflow/internal/crm"
	"dealflow/internal/directory"
	"dealflow/internal/reconciler"
	"dealflow/internal/rules"
	"dealflow/internal/scheduler"
	"dealflow/pkg/logging"
)

// Services holds the wired service graph.
type Services struct {
	Gateway    crm.Gateway
	Resolver   *directory.Resolver
	StageIndex *rules.StageIndex
	Dispatcher *reconciler.Dispatcher
	Scheduler  *scheduler.Scheduler
}

// InitializeServices builds the full service graph from a validated
// configuration: the CRM gateway, the role classifiers, both rule
// evaluators and the dispatcher that drives them.
func InitializeServices(cfg config.Config) (*Services, error) {
	gateway, err := crm.NewClient(crm.ClientOptions{
		BaseURL:     cfg.CRM.BaseURL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.CRM.AccessToken}),
		DeviceUUID:  cfg.CRM.DeviceUUID,
		UserAgent:   "dealflow",
		MaxRetries:  cfg.CRM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create CRM client: %w", err)
	}

	salesReps, err := cfg.Roles.SalesReps.Classifier()
	if err != nil {
		return nil, fmt.Errorf("sales representative classifier: %w", err)
	}
	accountManagers, err := cfg.Roles.AccountManagers.Classifier()
	if err != nil {
		return nil, fmt.Errorf("account manager classifier: %w", err)
	}
	logging.Info("Bootstrap", "Sales representatives: %s", salesReps.Describe())
	logging.Info("Bootstrap", "Account managers: %s", accountManagers.Describe())

	resolver := directory.NewResolver(gateway)
	stageIndex := rules.NewStageIndex(gateway)
	namer := rules.NewDealNamer(cfg.DealNameLayout)

	dispatcher := reconciler.NewDispatcher(gateway)
	dispatcher.AddPreparer(stageIndex)
	if err := dispatcher.Register(rules.NewContactRule(gateway, resolver, salesReps, stageIndex, namer)); err != nil {
		return nil, err
	}
	if err := dispatcher.Register(rules.NewDealRule(gateway, resolver, accountManagers, stageIndex, cfg.OnDuty.Identity())); err != nil {
		return nil, err
	}

	return &Services{
		Gateway:    gateway,
		Resolver:   resolver,
		StageIndex: stageIndex,
		Dispatcher: dispatcher,
		Scheduler:  scheduler.New(dispatcher, cfg.Scheduler.Interval.Std()),
	}, nil
}
