package server

import (
	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/tax"
)

// ProcessResponse is the response for the parse endpoint
type ProcessResponse struct {
	Document    *model.FiscalDocument `json:"document"`
	Diagnostics []model.Diagnostic    `json:"diagnostics"`
	Summary     model.Summary         `json:"summary"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	Valid       bool               `json:"valid"`
	Summary     model.Summary      `json:"summary"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
}

// DifalRequest is the JSON body of the standalone DIFAL endpoint.
// Rates left out are looked up in the server's rate table from the states.
type DifalRequest struct {
	OperationValue          float64         `json:"operation_value" binding:"gte=0"`
	OriginState             string          `json:"origin_state"`
	DestinationState        string          `json:"destination_state"`
	InterstateRate          *float64        `json:"interstate_rate,omitempty"`
	DestinationInternalRate *float64        `json:"destination_internal_rate,omitempty"`
	FCPRate                 *float64        `json:"fcp_rate,omitempty"`
	Imported                bool            `json:"imported,omitempty"`
	Methodology             tax.Methodology `json:"methodology"`
}

// DocumentDifalResponse pairs the extracted input with the result
type DocumentDifalResponse struct {
	AccessKey string           `json:"access_key"`
	Input     tax.DifalInput   `json:"input"`
	Result    *tax.DifalResult `json:"result"`
}

// MvaRequest is the JSON body of the MVA endpoint
type MvaRequest struct {
	OriginalMVA             float64 `json:"original_mva" binding:"gte=0"`
	InterstateRate          float64 `json:"interstate_rate" binding:"gte=0"`
	DestinationInternalRate float64 `json:"destination_internal_rate" binding:"gte=0"`
}

// InfoResponse is the response for the info endpoint
type InfoResponse struct {
	Format    string `json:"format"`
	Size      int    `json:"size"`
	Root      string `json:"root,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Details   string   `json:"details,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}
