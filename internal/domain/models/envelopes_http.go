package models

// Requests for envelope HTTP endpoints. Defined in domain for consistency and reuse.

type LatestEnvelopeRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}

type EnvelopeHistoryRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type GovernorStateRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
