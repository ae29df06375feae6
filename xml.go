package bpmn

import "log/slog"

// Codec converts documents to and from BPMN 2.0 XML.
type Codec struct {
	// Layout sizes and places diagram entries missing from a document.
	Layout Layout
	Logger *slog.Logger
}

// NewCodec returns a Codec. A nil logger falls back to slog.Default().
func NewCodec(layout Layout, logger *slog.Logger) *Codec {
	return &Codec{Layout: layout, Logger: logger}
}

func (c *Codec) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Codec) layout() Layout {
	if c == nil {
		return DefaultLayout()
	}
	return c.Layout.orDefault()
}

var defaultCodec = &Codec{Layout: DefaultLayout()}

// Parse reads a document with the default layout and logger.
func Parse(text string) (*Document, error) {
	return defaultCodec.Parse(text)
}

// Serialize writes a document with the default layout.
func Serialize(d *Document) (string, error) {
	return defaultCodec.Serialize(d)
}

// Parse reads BPMN XML. Input whose root does not carry the canonical
// namespace declarations is written out and read again, so the result
// always serializes with them.
func (c *Codec) Parse(text string) (*Document, error) {
	d, canonical, err := c.read(text)
	if err != nil {
		return nil, err
	}
	if canonical {
		return d, nil
	}
	c.logger().Debug("bpmn: normalizing namespace declarations", "process", d.ProcessID)
	out, err := c.Serialize(d)
	if err != nil {
		return nil, err
	}
	d, _, err = c.read(out)
	return d, err
}
