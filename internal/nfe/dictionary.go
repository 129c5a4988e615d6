package nfe

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Field describes one known NFe location offered to users when building a
// mapping.
type Field struct {
	Path     string
	Column   string
	Currency bool
	// Default marks the fields of the out-of-the-box mapping.
	Default bool
}

// DefaultDictionary lists the known NFe fields in their presentation order.
// Every call returns a fresh slice.
func DefaultDictionary() []Field {
	return []Field{
		// identification
		{Path: "nfeProc.NFe.infNFe.@Id", Column: "ID NFe"},
		{Path: "nfeProc.NFe.infNFe.ide.nNF", Column: "Número NF", Default: true},
		{Path: "nfeProc.NFe.infNFe.ide.serie", Column: "Série", Default: true},
		{Path: "nfeProc.NFe.infNFe.ide.mod", Column: "Modelo"},
		{Path: "nfeProc.NFe.infNFe.ide.natOp", Column: "Natureza da Operação", Default: true},
		{Path: "nfeProc.NFe.infNFe.ide.dhEmi", Column: "Data Emissão", Default: true},
		{Path: "nfeProc.NFe.infNFe.ide.dhSaiEnt", Column: "Data Saída/Entrada"},
		{Path: "nfeProc.NFe.infNFe.ide.tpNF", Column: "Tipo NF"},

		// emitter
		{Path: "nfeProc.NFe.infNFe.emit.CNPJ", Column: "CNPJ Emitente", Default: true},
		{Path: "nfeProc.NFe.infNFe.emit.xNome", Column: "Razão Social Emitente", Default: true},
		{Path: "nfeProc.NFe.infNFe.emit.xFant", Column: "Nome Fantasia Emitente"},
		{Path: "nfeProc.NFe.infNFe.emit.IE", Column: "IE Emitente"},
		{Path: "nfeProc.NFe.infNFe.emit.enderEmit.xMun", Column: "Município Emitente"},
		{Path: "nfeProc.NFe.infNFe.emit.enderEmit.UF", Column: "UF Emitente"},

		// recipient
		{Path: "nfeProc.NFe.infNFe.dest.CNPJ", Column: "CNPJ Destinatário", Default: true},
		{Path: "nfeProc.NFe.infNFe.dest.CPF", Column: "CPF Destinatário"},
		{Path: "nfeProc.NFe.infNFe.dest.xNome", Column: "Razão Social Destinatário", Default: true},
		{Path: "nfeProc.NFe.infNFe.dest.IE", Column: "IE Destinatário"},
		{Path: "nfeProc.NFe.infNFe.dest.enderDest.xMun", Column: "Município Destinatário"},
		{Path: "nfeProc.NFe.infNFe.dest.enderDest.UF", Column: "UF Destinatário"},

		// totals
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vBC", Column: "Base de Cálculo ICMS", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vICMS", Column: "Valor ICMS", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vProd", Column: "Valor Produtos", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vFrete", Column: "Valor Frete", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vDesc", Column: "Valor Desconto", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vIPI", Column: "Valor IPI", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vPIS", Column: "Valor PIS", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vCOFINS", Column: "Valor COFINS", Currency: true},
		{Path: "nfeProc.NFe.infNFe.total.ICMSTot.vNF", Column: "Valor Total NF", Currency: true, Default: true},

		// transport
		{Path: "nfeProc.NFe.infNFe.transp.modFrete", Column: "Modalidade Frete"},
		{Path: "nfeProc.NFe.infNFe.transp.transporta.xNome", Column: "Transportadora"},

		// authorization protocol
		{Path: "nfeProc.protNFe.infProt.chNFe", Column: "Chave de Acesso", Default: true},
		{Path: "nfeProc.protNFe.infProt.nProt", Column: "Protocolo"},
		{Path: "nfeProc.protNFe.infProt.dhRecbto", Column: "Data Autorização"},
		{Path: "nfeProc.protNFe.infProt.cStat", Column: "Status"},
		{Path: "nfeProc.protNFe.infProt.xMotivo", Column: "Motivo"},

		// line items
		{Path: "nfeProc.NFe.infNFe.det.@nItem", Column: "Item", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.cProd", Column: "Código Produto", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.cEAN", Column: "EAN"},
		{Path: "nfeProc.NFe.infNFe.det.prod.xProd", Column: "Descrição Produto", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.NCM", Column: "NCM", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.CFOP", Column: "CFOP", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.uCom", Column: "Unidade"},
		{Path: "nfeProc.NFe.infNFe.det.prod.qCom", Column: "Quantidade", Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.vUnCom", Column: "Valor Unitário", Currency: true, Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.vProd", Column: "Valor Item", Currency: true, Default: true},
		{Path: "nfeProc.NFe.infNFe.det.prod.rastro.nLote", Column: "Lote"},
		{Path: "nfeProc.NFe.infNFe.det.prod.rastro.dFab", Column: "Data Fabricação"},
		{Path: "nfeProc.NFe.infNFe.det.prod.rastro.dVal", Column: "Data Validade"},

		// payments
		{Path: "nfeProc.NFe.infNFe.pag.detPag.tPag", Column: "Forma Pagamento", Default: true},
		{Path: "nfeProc.NFe.infNFe.pag.detPag.vPag", Column: "Valor Pagamento", Currency: true, Default: true},

		// duplicates
		{Path: "nfeProc.NFe.infNFe.cobr.dup.nDup", Column: "Número Duplicata", Default: true},
		{Path: "nfeProc.NFe.infNFe.cobr.dup.dVenc", Column: "Vencimento Duplicata", Default: true},
		{Path: "nfeProc.NFe.infNFe.cobr.dup.vDup", Column: "Valor Duplicata", Currency: true, Default: true},
	}
}

// FormatConfig is the immutable registry the column formatter consults.
type FormatConfig struct {
	// CurrencyPaths holds the monetary field paths.
	CurrencyPaths map[string]struct{}
	// DateSuffixes matches date fields by the name of their last segment.
	DateSuffixes []string
	Locale       language.Tag
	// Location converts dates before rendering. Nil keeps the offset
	// written in the document.
	Location *time.Location
}

// DefaultFormatConfig derives the registry from DefaultDictionary.
func DefaultFormatConfig() FormatConfig {
	currency := make(map[string]struct{})
	for _, f := range DefaultDictionary() {
		if f.Currency {
			currency[f.Path] = struct{}{}
		}
	}
	return FormatConfig{
		CurrencyPaths: currency,
		DateSuffixes:  []string{"dhEmi", "dhSaiEnt", "dFab", "dVal", "dhRecbto", "dVenc"},
		Locale:        language.BrazilianPortuguese,
	}
}

// IsCurrency reports whether path is a registered monetary field.
func (c FormatConfig) IsCurrency(path string) bool {
	_, ok := c.CurrencyPaths[path]
	return ok
}

// IsDate reports whether a segment name looks like a date field.
func (c FormatConfig) IsDate(name string) bool {
	for _, suffix := range c.DateSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
