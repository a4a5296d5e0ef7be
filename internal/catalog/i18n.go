package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgMarkInStockLabel = "Mark selected products as in stock"
	msgMarkedInStock    = "%d product kinds added to stock"
)

var supportedLocales = []language.Tag{
	language.English,
	language.Turkish,
}

var messageCatalog = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	_ = b.SetString(language.English, msgMarkInStockLabel, msgMarkInStockLabel)
	_ = b.SetString(language.English, msgMarkedInStock, msgMarkedInStock)
	_ = b.SetString(language.Turkish, msgMarkInStockLabel, "İşaretlenen ürünleri stoğa ekle")
	_ = b.SetString(language.Turkish, msgMarkedInStock, "%d çeşit ürün stoğa eklendi")
	return b
}()

var localeMatcher = language.NewMatcher(supportedLocales)

// Messages renders the user facing strings of the catalog admin in one locale.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// NewMessages picks the closest supported locale, English when unknown.
func NewMessages(locale string) *Messages {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := localeMatcher.Match(parsed)
			if conf != language.No {
				tag = supportedLocales[idx]
			}
		}
	}
	return &Messages{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messageCatalog)),
	}
}

// Locale returns the BCP 47 tag in use
func (m *Messages) Locale() string {
	return m.tag.String()
}

func (m *Messages) MarkInStockLabel() string {
	return m.printer.Sprintf(msgMarkInStockLabel)
}

func (m *Messages) MarkedInStock(count int64) string {
	return m.printer.Sprintf(msgMarkedInStock, count)
}
