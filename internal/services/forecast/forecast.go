package forecast

import (
	"fmt"

	"MarketCast/internal/domain/service"
	"MarketCast/internal/services/features"
	"MarketCast/pkg/config"
)

// Model names accepted by the API and config.
const (
	ModelNaive    = "naive"
	ModelMomentum = "momentum"
	ModelHybrid   = "hybrid"
	ModelRemote   = "remote"
)

// FactoryFor maps a model name to a forecaster factory. The evaluator
// calls the factory once per window so state never crosses windows.
func FactoryFor(model string, cfg *config.Config) (service.ForecasterFactory, error) {
	switch model {
	case ModelNaive:
		return func() service.Forecaster { return NewNaive() }, nil
	case ModelMomentum:
		return func() service.Forecaster { return NewMomentum(features.ColMom5) }, nil
	case ModelHybrid:
		return func() service.Forecaster {
			return NewHybrid(NewMomentum(features.ColMom5), NewMomentum(features.ColLagRet5), NewNaive())
		}, nil
	case ModelRemote:
		if cfg == nil || cfg.Models.RemoteServiceURL == "" {
			return nil, fmt.Errorf("remote model service url is not configured")
		}
		return func() service.Forecaster { return NewRemote(cfg) }, nil
	default:
		return nil, fmt.Errorf("unknown forecast model %q", model)
	}
}
