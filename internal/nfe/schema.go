package nfe

import (
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
)

// GroupKind identifies which repeating group a field path belongs to.
type GroupKind int

const (
	GroupNone GroupKind = iota
	GroupLineItem
	GroupPayment
	GroupDuplicate
)

func (k GroupKind) String() string {
	switch k {
	case GroupLineItem:
		return "line-item"
	case GroupPayment:
		return "payment"
	case GroupDuplicate:
		return "duplicate"
	default:
		return "general"
	}
}

// Schema binds each repeating group to its root path.
type Schema struct {
	LineItems  fieldpath.Path
	Payments   fieldpath.Path
	Duplicates fieldpath.Path
}

// DefaultSchema returns the group roots of an authorized NFe (nfeProc).
func DefaultSchema() Schema {
	return Schema{
		LineItems:  fieldpath.MustParse("nfeProc.NFe.infNFe.det"),
		Payments:   fieldpath.MustParse("nfeProc.NFe.infNFe.pag.detPag"),
		Duplicates: fieldpath.MustParse("nfeProc.NFe.infNFe.cobr.dup"),
	}
}

// Classify reports the group p belongs to and the remainder of p relative to
// that group's root. For general fields the remainder is p itself.
func (s Schema) Classify(p fieldpath.Path) (GroupKind, fieldpath.Path) {
	if rest, ok := p.TrimPrefix(s.LineItems); ok {
		return GroupLineItem, rest
	}
	if rest, ok := p.TrimPrefix(s.Payments); ok {
		return GroupPayment, rest
	}
	if rest, ok := p.TrimPrefix(s.Duplicates); ok {
		return GroupDuplicate, rest
	}
	return GroupNone, p
}
