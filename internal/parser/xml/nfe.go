package xml

import "encoding/xml"

// NF-e layout 4.00 structures. Tags carry no namespace so the decoder
// matches by local name whatever namespace the issuer declared.

type nfeProcXML struct {
	XMLName xml.Name    `xml:"nfeProc"`
	Version string      `xml:"versao,attr"`
	NFe     *nfeXML     `xml:"NFe"`
	ProtNFe *protNFeXML `xml:"protNFe"`
}

type nfeXML struct {
	XMLName xml.Name    `xml:"NFe"`
	InfNFe  *infNFeXML  `xml:"infNFe"`
	ProtNFe *protNFeXML `xml:"protNFe"`
}

type infNFeXML struct {
	ID      string `xml:"Id,attr"`
	Version string `xml:"versao,attr"`

	Ide     ideXML      `xml:"ide"`
	Emit    emitXML     `xml:"emit"`
	Dest    *destXML    `xml:"dest"`
	Det     []detXML    `xml:"det"`
	Total   totalXML    `xml:"total"`
	Transp  *transpXML  `xml:"transp"`
	Cobr    *cobrXML    `xml:"cobr"`
	Pag     *pagXML     `xml:"pag"`
	InfAdic *infAdicXML `xml:"infAdic"`
}

type ideXML struct {
	CUF      string `xml:"cUF"`
	CNF      string `xml:"cNF"`
	NatOp    string `xml:"natOp"`
	Mod      string `xml:"mod"`
	Serie    string `xml:"serie"`
	NNF      string `xml:"nNF"`
	DhEmi    string `xml:"dhEmi"`
	DEmi     string `xml:"dEmi"` // layouts before 3.10
	DhSaiEnt string `xml:"dhSaiEnt"`
	DSaiEnt  string `xml:"dSaiEnt"`
	TpNF     string `xml:"tpNF"`
	IDDest   string `xml:"idDest"`
	CMunFG   string `xml:"cMunFG"`
	TpImp    string `xml:"tpImp"`
	TpEmis   string `xml:"tpEmis"`
	CDV      string `xml:"cDV"`
	TpAmb    string `xml:"tpAmb"`
	FinNFe   string `xml:"finNFe"`
	IndFinal string `xml:"indFinal"`
	IndPres  string `xml:"indPres"`
	ProcEmi  string `xml:"procEmi"`
	VerProc  string `xml:"verProc"`
}

type emitXML struct {
	CNPJ  string   `xml:"CNPJ"`
	CPF   string   `xml:"CPF"`
	XNome string   `xml:"xNome"`
	XFant string   `xml:"xFant"`
	Ender enderXML `xml:"enderEmit"`
	IE    string   `xml:"IE"`
	IM    string   `xml:"IM"`
	CRT   string   `xml:"CRT"`
	Email string   `xml:"email"`
}

type destXML struct {
	CNPJ          string   `xml:"CNPJ"`
	CPF           string   `xml:"CPF"`
	IDEstrangeiro string   `xml:"idEstrangeiro"`
	XNome         string   `xml:"xNome"`
	Ender         enderXML `xml:"enderDest"`
	IndIEDest     string   `xml:"indIEDest"`
	IE            string   `xml:"IE"`
	IM            string   `xml:"IM"`
	Email         string   `xml:"email"`
}

type enderXML struct {
	XLgr    string `xml:"xLgr"`
	Nro     string `xml:"nro"`
	XCpl    string `xml:"xCpl"`
	XBairro string `xml:"xBairro"`
	CMun    string `xml:"cMun"`
	XMun    string `xml:"xMun"`
	UF      string `xml:"UF"`
	CEP     string `xml:"CEP"`
	CPais   string `xml:"cPais"`
	XPais   string `xml:"xPais"`
	Fone    string `xml:"fone"`
}

type detXML struct {
	NItem   string      `xml:"nItem,attr"`
	Prod    *prodXML    `xml:"prod"`
	Imposto *impostoXML `xml:"imposto"`
}

type prodXML struct {
	CProd    string `xml:"cProd"`
	CEAN     string `xml:"cEAN"`
	XProd    string `xml:"xProd"`
	NCM      string `xml:"NCM"`
	CEST     string `xml:"CEST"`
	CFOP     string `xml:"CFOP"`
	UCom     string `xml:"uCom"`
	QCom     string `xml:"qCom"`
	VUnCom   string `xml:"vUnCom"`
	VProd    string `xml:"vProd"`
	CEANTrib string `xml:"cEANTrib"`
	UTrib    string `xml:"uTrib"`
	QTrib    string `xml:"qTrib"`
	VUnTrib  string `xml:"vUnTrib"`
	VFrete   string `xml:"vFrete"`
	VSeg     string `xml:"vSeg"`
	VDesc    string `xml:"vDesc"`
	VOutro   string `xml:"vOutro"`
	IndTot   string `xml:"indTot"`
}

type impostoXML struct {
	ICMS   *groupSetXML `xml:"ICMS"`
	IPI    *ipiXML      `xml:"IPI"`
	PIS    *groupSetXML `xml:"PIS"`
	COFINS *groupSetXML `xml:"COFINS"`
}

// groupSetXML holds the single populated CST group of ICMS, PIS or COFINS.
// The group element name (ICMS00, ICMSSN102, PISAliq, COFINSNT...) is kept
// in XMLName.
type groupSetXML struct {
	Groups []taxGroupXML `xml:",any"`
}

type taxGroupXML struct {
	XMLName xml.Name

	Orig  string `xml:"orig"`
	CST   string `xml:"CST"`
	CSOSN string `xml:"CSOSN"`
	ModBC string `xml:"modBC"`
	VBC   string `xml:"vBC"`

	PICMS      string `xml:"pICMS"`
	VICMS      string `xml:"vICMS"`
	PFCP       string `xml:"pFCP"`
	VFCP       string `xml:"vFCP"`
	PMVAST     string `xml:"pMVAST"`
	VBCST      string `xml:"vBCST"`
	PICMSST    string `xml:"pICMSST"`
	VICMSST    string `xml:"vICMSST"`
	VFCPST     string `xml:"vFCPST"`
	VICMSDeson string `xml:"vICMSDeson"`

	PPIS    string `xml:"pPIS"`
	VPIS    string `xml:"vPIS"`
	PCOFINS string `xml:"pCOFINS"`
	VCOFINS string `xml:"vCOFINS"`
}

type ipiXML struct {
	CEnq string       `xml:"cEnq"`
	Trib *ipiGroupXML `xml:"IPITrib"`
	NT   *ipiGroupXML `xml:"IPINT"`
}

type ipiGroupXML struct {
	CST  string `xml:"CST"`
	VBC  string `xml:"vBC"`
	PIPI string `xml:"pIPI"`
	VIPI string `xml:"vIPI"`
}

type totalXML struct {
	ICMSTot icmsTotXML `xml:"ICMSTot"`
}

type icmsTotXML struct {
	VBC        string `xml:"vBC"`
	VICMS      string `xml:"vICMS"`
	VICMSDeson string `xml:"vICMSDeson"`
	VFCP       string `xml:"vFCP"`
	VBCST      string `xml:"vBCST"`
	VST        string `xml:"vST"`
	VFCPST     string `xml:"vFCPST"`
	VFCPSTRet  string `xml:"vFCPSTRet"`
	VProd      string `xml:"vProd"`
	VFrete     string `xml:"vFrete"`
	VSeg       string `xml:"vSeg"`
	VDesc      string `xml:"vDesc"`
	VII        string `xml:"vII"`
	VIPI       string `xml:"vIPI"`
	VIPIDevol  string `xml:"vIPIDevol"`
	VPIS       string `xml:"vPIS"`
	VCOFINS    string `xml:"vCOFINS"`
	VOutro     string `xml:"vOutro"`
	VNF        string `xml:"vNF"`
	VTotTrib   string `xml:"vTotTrib"`
}

type transpXML struct {
	ModFrete   string         `xml:"modFrete"`
	Transporta *transportaXML `xml:"transporta"`
	VeicTransp *veicTranspXML `xml:"veicTransp"`
	Vol        []volXML       `xml:"vol"`
}

type transportaXML struct {
	CNPJ   string `xml:"CNPJ"`
	CPF    string `xml:"CPF"`
	XNome  string `xml:"xNome"`
	IE     string `xml:"IE"`
	XEnder string `xml:"xEnder"`
	XMun   string `xml:"xMun"`
	UF     string `xml:"UF"`
}

type veicTranspXML struct {
	Placa string `xml:"placa"`
	UF    string `xml:"UF"`
}

type volXML struct {
	QVol  string `xml:"qVol"`
	Esp   string `xml:"esp"`
	Marca string `xml:"marca"`
	NVol  string `xml:"nVol"`
	PesoL string `xml:"pesoL"`
	PesoB string `xml:"pesoB"`
}

type cobrXML struct {
	Fat *fatXML  `xml:"fat"`
	Dup []dupXML `xml:"dup"`
}

type fatXML struct {
	NFat  string `xml:"nFat"`
	VOrig string `xml:"vOrig"`
	VDesc string `xml:"vDesc"`
	VLiq  string `xml:"vLiq"`
}

type dupXML struct {
	NDup  string `xml:"nDup"`
	DVenc string `xml:"dVenc"`
	VDup  string `xml:"vDup"`
}

type pagXML struct {
	DetPag []detPagXML `xml:"detPag"`
	VTroco string      `xml:"vTroco"`
}

type detPagXML struct {
	IndPag string   `xml:"indPag"`
	TPag   string   `xml:"tPag"`
	VPag   string   `xml:"vPag"`
	Card   *cardXML `xml:"card"`
}

type cardXML struct {
	CNPJ  string `xml:"CNPJ"`
	TBand string `xml:"tBand"`
	CAut  string `xml:"cAut"`
}

type infAdicXML struct {
	InfAdFisco string `xml:"infAdFisco"`
	InfCpl     string `xml:"infCpl"`
}

type protNFeXML struct {
	InfProt *infProtXML `xml:"infProt"`
}

type infProtXML struct {
	TpAmb    string `xml:"tpAmb"`
	VerAplic string `xml:"verAplic"`
	ChNFe    string `xml:"chNFe"`
	DhRecbto string `xml:"dhRecbto"`
	NProt    string `xml:"nProt"`
	DigVal   string `xml:"digVal"`
	CStat    string `xml:"cStat"`
	XMotivo  string `xml:"xMotivo"`
}
