package models

// Requests for evaluation HTTP endpoints. Defined in domain for
// consistency and reuse.

type EvaluateRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" default:"1" validate:"gte=1,lte=30"`
	N       int    `query:"n" json:"n" default:"2000" validate:"gte=1,lte=50000"`
	TF      string `query:"tf" json:"tf" default:"1d" validate:"oneof=1m 1h 1d"`
	Model   string `query:"model" json:"model" default:"momentum" validate:"oneof=naive momentum hybrid remote"`
	Detail  bool   `query:"detail" json:"detail"`
}

type ForecastRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" default:"1" validate:"gte=1,lte=30"`
	N       int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=50000"`
	TF      string `query:"tf" json:"tf" default:"1d" validate:"oneof=1m 1h 1d"`
	Model   string `query:"model" json:"model" default:"momentum" validate:"oneof=naive momentum hybrid remote"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	TF     string `query:"tf" json:"tf" default:"1d" validate:"oneof=1m 1h 1d"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=0,lte=50000"`
}
