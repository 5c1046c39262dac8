package xml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/model"
)

// Parser decodes NF-e XML into a FiscalDocument
type Parser struct{}

// NewParser creates a new NF-e parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the whole document from r and decodes it
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.FiscalDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(content)
}

// Parse decodes an NF-e, accepting either the nfeProc envelope or a bare NFe
// root. Missing leaves become empty strings and unparsable numbers become
// zero; only a malformed document or a missing root/infNFe anchor fails.
func Parse(data []byte) (*model.FiscalDocument, error) {
	dec := newDecoder(data)

	start, err := rootElement(dec)
	if err != nil {
		return nil, err
	}

	var (
		nfe  *nfeXML
		prot *protNFeXML
	)

	switch start.Name.Local {
	case RootProc.String():
		var proc nfeProcXML
		if err := dec.DecodeElement(&proc, &start); err != nil {
			return nil, model.NewMalformedError(err)
		}
		if proc.NFe == nil {
			return nil, model.NewParseError(model.ErrCodeMissingRoot, "nfeProc envelope has no NFe element", nil)
		}
		nfe = proc.NFe
		prot = proc.ProtNFe
	case RootNFe.String():
		nfe = &nfeXML{}
		if err := dec.DecodeElement(nfe, &start); err != nil {
			return nil, model.NewMalformedError(err)
		}
		prot = nfe.ProtNFe
	default:
		return nil, model.NewMissingRootError(start.Name.Local)
	}

	if err := trailingContent(dec); err != nil {
		return nil, err
	}

	if nfe.InfNFe == nil {
		return nil, model.NewMissingInfoBlockError()
	}

	return convertDocument(nfe.InfNFe, prot), nil
}

// trailingContent drains the decoder after the root element. Only
// whitespace, comments and processing instructions may follow it.
func trailingContent(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return model.NewMalformedError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return model.NewMalformedError(fmt.Errorf("unexpected element <%s> after document root", t.Name.Local))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return model.NewMalformedError(errors.New("unexpected text after document root"))
			}
		}
	}
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec
}

// charsetReader decodes the single-byte encodings some issuer software
// still declares in the XML prolog.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "utf-8", "utf8":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}

// rootElement advances to the first start element
func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, model.NewMalformedError(errors.New("no root element"))
			}
			return xml.StartElement{}, model.NewMalformedError(err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func convertDocument(inf *infNFeXML, prot *protNFeXML) *model.FiscalDocument {
	doc := &model.FiscalDocument{
		AccessKey:      strings.TrimPrefix(strings.TrimSpace(inf.ID), model.AccessKeyPrefix),
		Version:        inf.Version,
		Identification: convertIde(inf.Ide),
		Issuer:         convertEmit(inf.Emit),
		LineItems:      make([]model.LineItem, 0, len(inf.Det)),
		Totals:         convertTotals(inf.Total.ICMSTot),
	}

	if inf.Dest != nil {
		doc.Recipient = convertDest(inf.Dest)
	}

	for _, det := range inf.Det {
		doc.LineItems = append(doc.LineItems, convertDet(det))
	}

	if inf.Transp != nil {
		doc.Transport = convertTransport(inf.Transp)
	}
	if inf.Cobr != nil {
		doc.Billing = convertBilling(inf.Cobr)
	}
	if inf.Pag != nil {
		doc.Payment = convertPayment(inf.Pag)
	}
	if inf.InfAdic != nil {
		doc.AdditionalInfo = &model.AdditionalInfo{
			FiscalNote:        strings.TrimSpace(inf.InfAdic.InfAdFisco),
			ComplementaryNote: strings.TrimSpace(inf.InfAdic.InfCpl),
		}
	}
	if prot != nil && prot.InfProt != nil {
		doc.Authorization = convertProtocol(prot.InfProt)
	}

	return doc
}

func convertIde(ide ideXML) model.Identification {
	result := model.Identification{
		StateCode:          ide.CUF,
		NumericCode:        ide.CNF,
		OperationNature:    ide.NatOp,
		Model:              ide.Mod,
		Series:             ide.Serie,
		Number:             ide.NNF,
		Direction:          parseDirection(ide.TpNF),
		DestinationIndex:   ide.IDDest,
		MunicipalityCode:   ide.CMunFG,
		PrintType:          ide.TpImp,
		EmissionType:       ide.TpEmis,
		CheckDigit:         ide.CDV,
		Environment:        ide.TpAmb,
		Purpose:            ide.FinNFe,
		FinalConsumer:      strings.TrimSpace(ide.IndFinal) == "1",
		PresenceIndicator:  ide.IndPres,
		EmissionProcess:    ide.ProcEmi,
		EmissionAppVersion: ide.VerProc,
	}

	emitted := ide.DhEmi
	if emitted == "" {
		emitted = ide.DEmi
	}
	result.EmittedAt = parseDateTime(emitted)

	exit := ide.DhSaiEnt
	if exit == "" {
		exit = ide.DSaiEnt
	}
	if t := parseDateTime(exit); !t.IsZero() {
		result.ExitAt = &t
	}

	return result
}

func parseDirection(tpNF string) model.Direction {
	switch strings.TrimSpace(tpNF) {
	case "0":
		return model.DirectionInbound
	case "1":
		return model.DirectionOutbound
	}
	return model.DirectionUnknown
}

func convertEmit(e emitXML) model.Party {
	taxID, kind := taxID(e.CNPJ, e.CPF, "")
	return model.Party{
		TaxID:                 taxID,
		TaxIDKind:             kind,
		Name:                  e.XNome,
		TradeName:             e.XFant,
		StateRegistration:     e.IE,
		MunicipalRegistration: e.IM,
		TaxRegime:             e.CRT,
		Email:                 e.Email,
		Address:               convertAddress(e.Ender),
	}
}

func convertDest(d *destXML) *model.Party {
	taxID, kind := taxID(d.CNPJ, d.CPF, d.IDEstrangeiro)
	return &model.Party{
		TaxID:                      taxID,
		TaxIDKind:                  kind,
		Name:                       d.XNome,
		StateRegistration:          d.IE,
		StateRegistrationIndicator: d.IndIEDest,
		MunicipalRegistration:      d.IM,
		Email:                      d.Email,
		Address:                    convertAddress(d.Ender),
	}
}

func taxID(cnpj, cpf, foreign string) (string, model.TaxIDKind) {
	switch {
	case strings.TrimSpace(cnpj) != "":
		return strings.TrimSpace(cnpj), model.TaxIDEntity
	case strings.TrimSpace(cpf) != "":
		return strings.TrimSpace(cpf), model.TaxIDIndividual
	case strings.TrimSpace(foreign) != "":
		return strings.TrimSpace(foreign), model.TaxIDForeign
	}
	return "", model.TaxIDNone
}

func convertAddress(a enderXML) model.Address {
	return model.Address{
		Street:           a.XLgr,
		Number:           a.Nro,
		Complement:       a.XCpl,
		District:         a.XBairro,
		MunicipalityCode: a.CMun,
		Municipality:     a.XMun,
		State:            strings.ToUpper(strings.TrimSpace(a.UF)),
		PostalCode:       a.CEP,
		CountryCode:      a.CPais,
		Country:          a.XPais,
		Phone:            a.Fone,
	}
}

func convertDet(det detXML) model.LineItem {
	item := model.LineItem{
		Number: parseInt(det.NItem),
	}

	// A det without prod keeps its number; the validator reports the gaps.
	if p := det.Prod; p != nil {
		item.Code = p.CProd
		item.Barcode = p.CEAN
		item.Description = p.XProd
		item.NCM = strings.TrimSpace(p.NCM)
		item.CEST = strings.TrimSpace(p.CEST)
		item.CFOP = strings.TrimSpace(p.CFOP)
		item.Unit = p.UCom
		item.Quantity = decimal.Lenient(p.QCom)
		item.UnitValue = decimal.Lenient(p.VUnCom)
		item.LineTotal = decimal.Lenient(p.VProd)
		item.Freight = decimal.Lenient(p.VFrete)
		item.Insurance = decimal.Lenient(p.VSeg)
		item.Discount = decimal.Lenient(p.VDesc)
		item.OtherCharges = decimal.Lenient(p.VOutro)
		item.IncludedInTotal = strings.TrimSpace(p.IndTot) == "1"

		if p.UTrib != "" || p.QTrib != "" {
			item.Taxable = &model.TaxableUnit{
				Barcode:   p.CEANTrib,
				Unit:      p.UTrib,
				Quantity:  decimal.Lenient(p.QTrib),
				UnitValue: decimal.Lenient(p.VUnTrib),
			}
		}
	}

	if det.Imposto != nil {
		item.Taxes = convertTaxes(det.Imposto)
	}

	return item
}

func convertTaxes(imp *impostoXML) model.ItemTaxes {
	var taxes model.ItemTaxes

	if g := firstGroup(imp.ICMS); g != nil {
		situation := g.CST
		if situation == "" {
			situation = g.CSOSN
		}
		taxes.ICMS = model.ICMSTax{
			Group:           g.XMLName.Local,
			Origin:          strings.TrimSpace(g.Orig),
			Situation:       strings.TrimSpace(situation),
			BaseMode:        g.ModBC,
			Base:            decimal.Lenient(g.VBC),
			Rate:            decimal.Lenient(g.PICMS),
			Value:           decimal.Lenient(g.VICMS),
			FCPRate:         decimal.Lenient(g.PFCP),
			FCPValue:        decimal.Lenient(g.VFCP),
			STMarginPercent: decimal.Lenient(g.PMVAST),
			STBase:          decimal.Lenient(g.VBCST),
			STRate:          decimal.Lenient(g.PICMSST),
			STValue:         decimal.Lenient(g.VICMSST),
			FCPSTValue:      decimal.Lenient(g.VFCPST),
			ExemptValue:     decimal.Lenient(g.VICMSDeson),
		}
	}

	if imp.IPI != nil {
		ipi := &model.IPITax{EnquadramentoCode: imp.IPI.CEnq}
		switch {
		case imp.IPI.Trib != nil:
			ipi.Situation = imp.IPI.Trib.CST
			ipi.Base = decimal.Lenient(imp.IPI.Trib.VBC)
			ipi.Rate = decimal.Lenient(imp.IPI.Trib.PIPI)
			ipi.Value = decimal.Lenient(imp.IPI.Trib.VIPI)
		case imp.IPI.NT != nil:
			ipi.Situation = imp.IPI.NT.CST
		}
		taxes.IPI = ipi
	}

	if g := firstGroup(imp.PIS); g != nil {
		taxes.PIS = model.ContributionTax{
			Group:     g.XMLName.Local,
			Situation: g.CST,
			Base:      decimal.Lenient(g.VBC),
			Rate:      decimal.Lenient(g.PPIS),
			Value:     decimal.Lenient(g.VPIS),
		}
	}

	if g := firstGroup(imp.COFINS); g != nil {
		taxes.COFINS = model.ContributionTax{
			Group:     g.XMLName.Local,
			Situation: g.CST,
			Base:      decimal.Lenient(g.VBC),
			Rate:      decimal.Lenient(g.PCOFINS),
			Value:     decimal.Lenient(g.VCOFINS),
		}
	}

	return taxes
}

func firstGroup(set *groupSetXML) *taxGroupXML {
	if set == nil || len(set.Groups) == 0 {
		return nil
	}
	return &set.Groups[0]
}

func convertTotals(t icmsTotXML) model.TaxTotals {
	return model.TaxTotals{
		ICMSBase:        decimal.Lenient(t.VBC),
		ICMSValue:       decimal.Lenient(t.VICMS),
		ICMSExempt:      decimal.Lenient(t.VICMSDeson),
		FCPValue:        decimal.Lenient(t.VFCP),
		STBase:          decimal.Lenient(t.VBCST),
		STValue:         decimal.Lenient(t.VST),
		FCPSTValue:      decimal.Lenient(t.VFCPST),
		FCPSTRetained:   decimal.Lenient(t.VFCPSTRet),
		ProductTotal:    decimal.Lenient(t.VProd),
		Freight:         decimal.Lenient(t.VFrete),
		Insurance:       decimal.Lenient(t.VSeg),
		Discount:        decimal.Lenient(t.VDesc),
		OtherCharges:    decimal.Lenient(t.VOutro),
		ImportTax:       decimal.Lenient(t.VII),
		IPIValue:        decimal.Lenient(t.VIPI),
		IPIReturned:     decimal.Lenient(t.VIPIDevol),
		PISValue:        decimal.Lenient(t.VPIS),
		COFINSValue:     decimal.Lenient(t.VCOFINS),
		GrandTotal:      decimal.Lenient(t.VNF),
		ApproxTaxBurden: decimal.Lenient(t.VTotTrib),
	}
}

func convertTransport(t *transpXML) *model.Transport {
	result := &model.Transport{Mode: t.ModFrete}

	if c := t.Transporta; c != nil {
		id, _ := taxID(c.CNPJ, c.CPF, "")
		result.Carrier = &model.Carrier{
			TaxID:             id,
			Name:              c.XNome,
			StateRegistration: c.IE,
			Address:           c.XEnder,
			Municipality:      c.XMun,
			State:             c.UF,
		}
	}

	if v := t.VeicTransp; v != nil {
		result.Vehicle = &model.Vehicle{Plate: v.Placa, State: v.UF}
	}

	for _, vol := range t.Vol {
		result.Volumes = append(result.Volumes, model.Volume{
			Quantity:    decimal.Lenient(vol.QVol),
			Species:     vol.Esp,
			Brand:       vol.Marca,
			Numbering:   vol.NVol,
			NetWeight:   decimal.Lenient(vol.PesoL),
			GrossWeight: decimal.Lenient(vol.PesoB),
		})
	}

	return result
}

func convertBilling(c *cobrXML) *model.Billing {
	result := &model.Billing{}

	if f := c.Fat; f != nil {
		result.Invoice = &model.BillingInvoice{
			Number:        f.NFat,
			OriginalValue: decimal.Lenient(f.VOrig),
			Discount:      decimal.Lenient(f.VDesc),
			NetValue:      decimal.Lenient(f.VLiq),
		}
	}

	for _, dup := range c.Dup {
		result.Installments = append(result.Installments, model.Installment{
			Number:  dup.NDup,
			DueDate: parseDateTime(dup.DVenc),
			Value:   decimal.Lenient(dup.VDup),
		})
	}

	return result
}

func convertPayment(p *pagXML) *model.Payment {
	result := &model.Payment{
		Methods: make([]model.PaymentMethod, 0, len(p.DetPag)),
		Change:  decimal.Lenient(p.VTroco),
	}

	for _, dp := range p.DetPag {
		method := model.PaymentMethod{
			Indicator: dp.IndPag,
			Type:      dp.TPag,
			Value:     decimal.Lenient(dp.VPag),
		}
		if dp.Card != nil {
			method.Card = &model.Card{
				AcquirerTaxID:     dp.Card.CNPJ,
				Brand:             dp.Card.TBand,
				AuthorizationCode: dp.Card.CAut,
			}
		}
		result.Methods = append(result.Methods, method)
	}

	return result
}

func convertProtocol(p *infProtXML) *model.Authorization {
	return &model.Authorization{
		ProtocolNumber: strings.TrimSpace(p.NProt),
		ReceivedAt:     parseDateTime(p.DhRecbto),
		StatusCode:     strings.TrimSpace(p.CStat),
		StatusReason:   p.XMotivo,
		AccessKey:      p.ChNFe,
		DigestValue:    p.DigVal,
		Environment:    p.TpAmb,
		AppVersion:     p.VerAplic,
	}
}

// NF-e dates: dhEmi carries a UTC offset since layout 3.10, dEmi and dVenc
// are plain dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parseDateTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
