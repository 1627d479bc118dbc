package protocol

import "github.com/olapwire/pgshim/pkg/buffer"

// Query is the simple-query protocol message: one SQL string, possibly
// containing multiple semicolon-separated statements (not split out here;
// the planner collaborator owns that).
type Query struct {
	SQL string
}

// ReadQuery parses a Query message body.
func ReadQuery(r *buffer.Reader) (Query, error) {
	sql, err := r.GetString()
	return Query{SQL: sql}, err
}

// Parse is the extended-query Parse message: name the statement, supply its
// SQL text, and optionally pre-declare parameter type OIDs (this shim
// ignores the pre-declared types; see spec Open Questions).
type Parse struct {
	Name          string
	Query         string
	ParameterOIDs []uint32
}

// ReadParse parses a Parse message body.
func ReadParse(r *buffer.Reader) (Parse, error) {
	var p Parse

	name, err := r.GetString()
	if err != nil {
		return p, err
	}
	p.Name = name

	query, err := r.GetString()
	if err != nil {
		return p, err
	}
	p.Query = query

	count, err := r.GetUint16()
	if err != nil {
		return p, err
	}

	p.ParameterOIDs = make([]uint32, count)
	for i := range p.ParameterOIDs {
		oid, err := r.GetUint32()
		if err != nil {
			return p, err
		}
		p.ParameterOIDs[i] = oid
	}

	return p, nil
}

// BindParameter is one positional argument supplied to Bind, in whatever
// format (text/binary) the client chose for it.
type BindParameter struct {
	Format FormatCode
	Value  []byte // nil means SQL NULL
	IsNull bool
}

// Bind is the extended-query Bind message: binds a named statement to a
// named portal with concrete parameter values and desired result formats.
type Bind struct {
	Portal        string
	Statement     string
	Parameters    []BindParameter
	ResultFormats []FormatCode
}

// ReadBind parses a Bind message body.
func ReadBind(r *buffer.Reader) (Bind, error) {
	var b Bind

	portal, err := r.GetString()
	if err != nil {
		return b, err
	}
	b.Portal = portal

	stmt, err := r.GetString()
	if err != nil {
		return b, err
	}
	b.Statement = stmt

	formatCount, err := r.GetUint16()
	if err != nil {
		return b, err
	}

	paramFormats := make([]FormatCode, formatCount)
	for i := range paramFormats {
		f, err := r.GetUint16()
		if err != nil {
			return b, err
		}
		paramFormats[i] = FormatCode(f)
	}

	defaultFormat := TextFormat
	if len(paramFormats) == 1 {
		defaultFormat = paramFormats[0]
	}

	valueCount, err := r.GetUint16()
	if err != nil {
		return b, err
	}

	b.Parameters = make([]BindParameter, valueCount)
	for i := range b.Parameters {
		length, err := r.GetInt32()
		if err != nil {
			return b, err
		}

		format := defaultFormat
		if len(paramFormats) == int(valueCount) {
			format = paramFormats[i]
		}

		if length == -1 {
			b.Parameters[i] = BindParameter{Format: format, IsNull: true}
			continue
		}

		value, err := r.GetBytes(int(length))
		if err != nil {
			return b, err
		}

		// GetBytes returns a window into the reader's reusable buffer; Bind
		// values must outlive that buffer so they are copied here.
		owned := make([]byte, len(value))
		copy(owned, value)

		b.Parameters[i] = BindParameter{Format: format, Value: owned}
	}

	resultFormatCount, err := r.GetUint16()
	if err != nil {
		return b, err
	}

	b.ResultFormats = make([]FormatCode, resultFormatCount)
	for i := range b.ResultFormats {
		f, err := r.GetUint16()
		if err != nil {
			return b, err
		}
		b.ResultFormats[i] = FormatCode(f)
	}

	return b, nil
}

// Execute is the extended-query Execute message.
type Execute struct {
	Portal  string
	MaxRows uint32
}

// ReadExecute parses an Execute message body.
func ReadExecute(r *buffer.Reader) (Execute, error) {
	var e Execute

	name, err := r.GetString()
	if err != nil {
		return e, err
	}
	e.Portal = name

	maxRows, err := r.GetUint32()
	if err != nil {
		return e, err
	}
	e.MaxRows = maxRows

	return e, nil
}

// Describe is the extended-query Describe message.
type Describe struct {
	Kind DescribeKind
	Name string
}

// ReadDescribe parses a Describe message body.
func ReadDescribe(r *buffer.Reader) (Describe, error) {
	var d Describe

	kind, err := r.GetBytes(1)
	if err != nil {
		return d, err
	}
	d.Kind = DescribeKind(kind[0])

	name, err := r.GetString()
	if err != nil {
		return d, err
	}
	d.Name = name

	return d, nil
}

// Close is the extended-query Close message.
type Close struct {
	Kind CloseKind
	Name string
}

// ReadClose parses a Close message body.
func ReadClose(r *buffer.Reader) (Close, error) {
	var c Close

	kind, err := r.GetBytes(1)
	if err != nil {
		return c, err
	}
	c.Kind = CloseKind(kind[0])

	name, err := r.GetString()
	if err != nil {
		return c, err
	}
	c.Name = name

	return c, nil
}
