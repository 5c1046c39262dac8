package model

import (
	"time"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/nfe-processor/internal/decimal"
)

// AccessKeyPrefix is the fixed prefix of the infNFe Id attribute
const AccessKeyPrefix = "NFe"

// AccessKeyLength is the length of a valid access key
const AccessKeyLength = 44

// Tax id lengths
const (
	CNPJLength = 14
	CPFLength  = 11
)

// AuthorizedStatus is the cStat of an authorized document
const AuthorizedStatus = "100"

// Direction is the tpNF flag
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionUnknown  Direction = ""
)

// TaxIDKind tells which tax id node a party carried
type TaxIDKind string

const (
	TaxIDEntity     TaxIDKind = "CNPJ"
	TaxIDIndividual TaxIDKind = "CPF"
	TaxIDForeign    TaxIDKind = "FOREIGN"
	TaxIDNone       TaxIDKind = ""
)

// FiscalDocument is the normalized content of one NF-e.
// It is built once by the parser and never mutated afterwards.
type FiscalDocument struct {
	AccessKey      string         `json:"access_key"`
	Version        string         `json:"version,omitempty"`
	Identification Identification `json:"identification"`

	// Parties
	Issuer    Party  `json:"issuer"`
	Recipient *Party `json:"recipient,omitempty"`

	LineItems []LineItem `json:"line_items"`
	Totals    TaxTotals  `json:"totals"`

	// Optional blocks, nil when the node is absent
	Transport      *Transport      `json:"transport,omitempty"`
	Billing        *Billing        `json:"billing,omitempty"`
	Payment        *Payment        `json:"payment,omitempty"`
	AdditionalInfo *AdditionalInfo `json:"additional_info,omitempty"`
	Authorization  *Authorization  `json:"authorization,omitempty"`
}

// Identification holds the <ide> block
type Identification struct {
	StateCode          string     `json:"state_code"`            // cUF
	NumericCode        string     `json:"numeric_code"`          // cNF
	OperationNature    string     `json:"operation_nature"`      // natOp
	Model              string     `json:"model"`                 // 55 = NF-e, 65 = NFC-e
	Series             string     `json:"series"`
	Number             string     `json:"number"`                // nNF
	EmittedAt          time.Time  `json:"emitted_at"`            // dhEmi
	ExitAt             *time.Time `json:"exit_at,omitempty"`     // dhSaiEnt
	Direction          Direction  `json:"direction"`             // tpNF
	DestinationIndex   string     `json:"destination_indicator"` // idDest: 1 internal, 2 interstate, 3 foreign
	MunicipalityCode   string     `json:"municipality_code"`     // cMunFG
	PrintType          string     `json:"print_type"`            // tpImp
	EmissionType       string     `json:"emission_type"`         // tpEmis
	CheckDigit         string     `json:"check_digit"`           // cDV
	Environment        string     `json:"environment"`           // tpAmb: 1 production, 2 homologation
	Purpose            string     `json:"purpose"`               // finNFe
	FinalConsumer      bool       `json:"final_consumer"`        // indFinal
	PresenceIndicator  string     `json:"presence_indicator"`    // indPres
	EmissionProcess    string     `json:"emission_process,omitempty"`
	EmissionAppVersion string     `json:"emission_app_version,omitempty"`
}

// Interstate reports whether idDest flags an interstate operation
func (i Identification) Interstate() bool {
	return i.DestinationIndex == "2"
}

// Party represents issuer (emit) or recipient (dest)
type Party struct {
	TaxID                      string    `json:"tax_id"`
	TaxIDKind                  TaxIDKind `json:"tax_id_kind"`
	Name                       string    `json:"name"`
	TradeName                  string    `json:"trade_name,omitempty"`
	StateRegistration          string    `json:"state_registration,omitempty"`
	StateRegistrationIndicator string    `json:"state_registration_indicator,omitempty"` // indIEDest
	MunicipalRegistration      string    `json:"municipal_registration,omitempty"`
	TaxRegime                  string    `json:"tax_regime,omitempty"` // CRT
	Email                      string    `json:"email,omitempty"`
	Address                    Address   `json:"address"`
}

// Address represents enderEmit / enderDest
type Address struct {
	Street           string `json:"street"`
	Number           string `json:"number"`
	Complement       string `json:"complement,omitempty"`
	District         string `json:"district"`
	MunicipalityCode string `json:"municipality_code"`
	Municipality     string `json:"municipality"`
	State            string `json:"state"`
	PostalCode       string `json:"postal_code"`
	CountryCode      string `json:"country_code,omitempty"`
	Country          string `json:"country,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// LineItem represents one <det>
type LineItem struct {
	Number      int    `json:"number"` // nItem attribute as declared
	Code        string `json:"code"`
	Barcode     string `json:"barcode,omitempty"`
	Description string `json:"description"`
	NCM         string `json:"ncm"`
	CEST        string `json:"cest,omitempty"`
	CFOP        string `json:"cfop"`

	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitValue decimal.Decimal `json:"unit_value"`
	LineTotal decimal.Decimal `json:"line_total"` // vProd

	Taxable *TaxableUnit `json:"taxable,omitempty"`

	Freight         decimal.Decimal `json:"freight"`
	Insurance       decimal.Decimal `json:"insurance"`
	Discount        decimal.Decimal `json:"discount"`
	OtherCharges    decimal.Decimal `json:"other_charges"`
	IncludedInTotal bool            `json:"included_in_total"` // indTot

	Taxes ItemTaxes `json:"taxes"`
}

// TaxableUnit is the quantity/value in the tax-base unit (uTrib)
type TaxableUnit struct {
	Barcode   string          `json:"barcode,omitempty"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitValue decimal.Decimal `json:"unit_value"`
}

// ItemTaxes groups the tax sub-blocks of a line
type ItemTaxes struct {
	ICMS   ICMSTax         `json:"icms"`
	IPI    *IPITax         `json:"ipi,omitempty"`
	PIS    ContributionTax `json:"pis"`
	COFINS ContributionTax `json:"cofins"`
}

// ICMSTax is the populated ICMSxx / ICMSSNxxx group of a line
type ICMSTax struct {
	Group           string          `json:"group,omitempty"` // ICMS00, ICMS10, ICMSSN102, ...
	Origin          string          `json:"origin"`
	Situation       string          `json:"situation"` // CST or CSOSN
	BaseMode        string          `json:"base_mode,omitempty"`
	Base            decimal.Decimal `json:"base"`
	Rate            decimal.Decimal `json:"rate"`
	Value           decimal.Decimal `json:"value"`
	FCPRate         decimal.Decimal `json:"fcp_rate"`
	FCPValue        decimal.Decimal `json:"fcp_value"`
	STMarginPercent decimal.Decimal `json:"st_margin_percent"` // pMVAST
	STBase          decimal.Decimal `json:"st_base"`
	STRate          decimal.Decimal `json:"st_rate"`
	STValue         decimal.Decimal `json:"st_value"`
	FCPSTValue      decimal.Decimal `json:"fcp_st_value"`
	ExemptValue     decimal.Decimal `json:"exempt_value"` // vICMSDeson
}

// Imported reports whether the ICMS origin code flags foreign goods,
// which take the 4% interstate rate.
func (t ICMSTax) Imported() bool {
	switch t.Origin {
	case "1", "2", "3", "8":
		return true
	}
	return false
}

// IPITax is the IPI block; nil on the line when absent
type IPITax struct {
	EnquadramentoCode string          `json:"enquadramento_code,omitempty"` // cEnq
	Situation         string          `json:"situation"`
	Base              decimal.Decimal `json:"base"`
	Rate              decimal.Decimal `json:"rate"`
	Value             decimal.Decimal `json:"value"`
}

// ContributionTax is the PIS or COFINS block
type ContributionTax struct {
	Group     string          `json:"group,omitempty"` // PISAliq, COFINSNT, ...
	Situation string          `json:"situation"`
	Base      decimal.Decimal `json:"base"`
	Rate      decimal.Decimal `json:"rate"`
	Value     decimal.Decimal `json:"value"`
}

// TaxTotals is <total><ICMSTot>
type TaxTotals struct {
	ICMSBase        decimal.Decimal `json:"icms_base"`         // vBC
	ICMSValue       decimal.Decimal `json:"icms_value"`        // vICMS
	ICMSExempt      decimal.Decimal `json:"icms_exempt"`       // vICMSDeson
	FCPValue        decimal.Decimal `json:"fcp_value"`         // vFCP
	STBase          decimal.Decimal `json:"st_base"`           // vBCST
	STValue         decimal.Decimal `json:"st_value"`          // vST
	FCPSTValue      decimal.Decimal `json:"fcp_st_value"`      // vFCPST
	FCPSTRetained   decimal.Decimal `json:"fcp_st_retained"`   // vFCPSTRet
	ProductTotal    decimal.Decimal `json:"product_total"`     // vProd
	Freight         decimal.Decimal `json:"freight"`           // vFrete
	Insurance       decimal.Decimal `json:"insurance"`         // vSeg
	Discount        decimal.Decimal `json:"discount"`          // vDesc
	OtherCharges    decimal.Decimal `json:"other_charges"`     // vOutro
	ImportTax       decimal.Decimal `json:"import_tax"`        // vII
	IPIValue        decimal.Decimal `json:"ipi_value"`         // vIPI
	IPIReturned     decimal.Decimal `json:"ipi_returned"`      // vIPIDevol
	PISValue        decimal.Decimal `json:"pis_value"`         // vPIS
	COFINSValue     decimal.Decimal `json:"cofins_value"`      // vCOFINS
	GrandTotal      decimal.Decimal `json:"grand_total"`       // vNF
	ApproxTaxBurden decimal.Decimal `json:"approx_tax_burden"` // vTotTrib
}

// Transport is <transp>
type Transport struct {
	Mode    string   `json:"mode"` // modFrete
	Carrier *Carrier `json:"carrier,omitempty"`
	Vehicle *Vehicle `json:"vehicle,omitempty"`
	Volumes []Volume `json:"volumes,omitempty"`
}

// Carrier is <transporta>
type Carrier struct {
	TaxID             string `json:"tax_id"`
	Name              string `json:"name"`
	StateRegistration string `json:"state_registration,omitempty"`
	Address           string `json:"address,omitempty"`
	Municipality      string `json:"municipality,omitempty"`
	State             string `json:"state,omitempty"`
}

// Vehicle is <veicTransp>
type Vehicle struct {
	Plate string `json:"plate"`
	State string `json:"state"`
}

// Volume is <vol>
type Volume struct {
	Quantity    decimal.Decimal `json:"quantity"`
	Species     string          `json:"species,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Numbering   string          `json:"numbering,omitempty"`
	NetWeight   decimal.Decimal `json:"net_weight"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
}

// Billing is <cobr>
type Billing struct {
	Invoice      *BillingInvoice `json:"invoice,omitempty"`
	Installments []Installment   `json:"installments,omitempty"`
}

// BillingInvoice is <fat>
type BillingInvoice struct {
	Number        string          `json:"number"`
	OriginalValue decimal.Decimal `json:"original_value"`
	Discount      decimal.Decimal `json:"discount"`
	NetValue      decimal.Decimal `json:"net_value"`
}

// Installment is <dup>
type Installment struct {
	Number  string          `json:"number"`
	DueDate time.Time       `json:"due_date"`
	Value   decimal.Decimal `json:"value"`
}

// Payment is <pag>
type Payment struct {
	Methods []PaymentMethod `json:"methods"`
	Change  decimal.Decimal `json:"change"` // vTroco
}

// PaymentMethod is <detPag>
type PaymentMethod struct {
	Indicator string          `json:"indicator,omitempty"` // indPag
	Type      string          `json:"type"`                // tPag
	Value     decimal.Decimal `json:"value"`
	Card      *Card           `json:"card,omitempty"`
}

// Card is <card>
type Card struct {
	AcquirerTaxID     string `json:"acquirer_tax_id,omitempty"`
	Brand             string `json:"brand,omitempty"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// AdditionalInfo is <infAdic>
type AdditionalInfo struct {
	FiscalNote        string `json:"fiscal_note,omitempty"`        // infAdFisco
	ComplementaryNote string `json:"complementary_note,omitempty"` // infCpl
}

// Authorization is <protNFe><infProt>
type Authorization struct {
	ProtocolNumber string    `json:"protocol_number"`
	ReceivedAt     time.Time `json:"received_at"`
	StatusCode     string    `json:"status_code"`
	StatusReason   string    `json:"status_reason"`
	AccessKey      string    `json:"access_key,omitempty"`
	DigestValue    string    `json:"digest_value,omitempty"`
	Environment    string    `json:"environment,omitempty"`
	AppVersion     string    `json:"app_version,omitempty"`
}

// Authorized reports whether the protocol carries the authorized status
func (a *Authorization) Authorized() bool {
	return a != nil && a.ProtocolNumber != "" && a.StatusCode == AuthorizedStatus
}

// SumLineTotals sums vProd over every line
func (d *FiscalDocument) SumLineTotals() decimal.Decimal {
	values := make([]decimal.Decimal, len(d.LineItems))
	for i, item := range d.LineItems {
		values[i] = item.LineTotal
	}
	return money.Sum(values)
}

// IssuerState returns the issuer UF
func (d *FiscalDocument) IssuerState() string {
	return d.Issuer.Address.State
}

// RecipientState returns the recipient UF, empty when there is no recipient
func (d *FiscalDocument) RecipientState() string {
	if d.Recipient == nil {
		return ""
	}
	return d.Recipient.Address.State
}
