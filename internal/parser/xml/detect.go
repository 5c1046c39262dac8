package xml

// Root identifies the top-level element of an NF-e file
type Root int

const (
	RootUnknown Root = iota
	RootProc         // <nfeProc>: authorized envelope with protNFe
	RootNFe          // <NFe>: bare document, not yet authorized
)

// String returns the element local name
func (r Root) String() string {
	switch r {
	case RootProc:
		return "nfeProc"
	case RootNFe:
		return "NFe"
	default:
		return "unknown"
	}
}

// DetectRoot scans up to the first element and reports which NF-e root it
// is. Malformed input, empty input and any other root report RootUnknown.
func DetectRoot(content []byte) Root {
	switch RootName(content) {
	case RootProc.String():
		return RootProc
	case RootNFe.String():
		return RootNFe
	}
	return RootUnknown
}

// CanParse reports whether content looks like an NF-e this package decodes
func CanParse(content []byte) bool {
	return DetectRoot(content) != RootUnknown
}

// RootName returns the local name of the first element, or "" if the
// content has none.
func RootName(content []byte) string {
	start, err := rootElement(newDecoder(content))
	if err != nil {
		return ""
	}
	return start.Name.Local
}
