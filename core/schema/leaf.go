package schema

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LeafKind names a scalar field type.
type LeafKind string

const (
	LeafString                   LeafKind = "String"
	LeafWhitespaceAnalyzedString LeafKind = "WhitespaceAnalyzedString"
	LeafEnglishString            LeafKind = "EnglishString"
	LeafHTML                     LeafKind = "HTML"
	LeafAnalyzedString           LeafKind = "AnalyzedString"
	LeafBinary                   LeafKind = "Binary"
	LeafIndexedBinary            LeafKind = "IndexedBinary"
	LeafHexString                LeafKind = "HexString"
	LeafBoolean                  LeafKind = "Boolean"
	LeafSigned8BitInteger        LeafKind = "Signed8BitInteger"
	LeafSigned16BitInteger       LeafKind = "Signed16BitInteger"
	LeafSigned32BitInteger       LeafKind = "Signed32BitInteger"
	LeafSigned64BitInteger       LeafKind = "Signed64BitInteger"
	LeafUnsigned8BitInteger      LeafKind = "Unsigned8BitInteger"
	LeafUnsigned16BitInteger     LeafKind = "Unsigned16BitInteger"
	LeafUnsigned32BitInteger     LeafKind = "Unsigned32BitInteger"
	LeafDouble                   LeafKind = "Double"
	LeafFloat                    LeafKind = "Float"
	LeafTimestamp                LeafKind = "Timestamp"
	LeafEnum                     LeafKind = "Enum"
	LeafFQDN                     LeafKind = "FQDN"
	LeafEmailAddress             LeafKind = "EmailAddress"
	LeafURL                      LeafKind = "URL"
	LeafURI                      LeafKind = "URI"
	LeafOID                      LeafKind = "OID"
	LeafIPAddress                LeafKind = "IPAddress"
	LeafIPv4Address              LeafKind = "IPv4Address"
	LeafIPv6Address              LeafKind = "IPv6Address"

	// LeafLintBool holds one certificate lint outcome: a boolean in the
	// compact encoding, the outcome name in the full one.
	LeafLintBool LeafKind = "LintBool"
)

// NativeType is the storage type a leaf maps to in one target.
type NativeType struct {
	Type     string `json:"type" yaml:"type"`
	Analyzer string `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
}

type leafSpec struct {
	es       string
	analyzer string
	bq       string
	check    func(Leaf, any) error
}

var leafSpecs = map[LeafKind]leafSpec{
	LeafString:                   {es: "keyword", bq: "STRING", check: checkString},
	LeafWhitespaceAnalyzedString: {es: "text", analyzer: "whitespace", bq: "STRING", check: checkString},
	LeafEnglishString:            {es: "text", analyzer: "english", bq: "STRING", check: checkString},
	LeafHTML:                     {es: "text", analyzer: "html", bq: "STRING", check: checkString},
	LeafAnalyzedString:           {es: "text", analyzer: "standard", bq: "STRING", check: checkString},
	LeafBinary:                   {es: "binary", bq: "BYTES", check: checkBinary},
	LeafIndexedBinary:            {es: "keyword", bq: "BYTES", check: checkBinary},
	LeafHexString:                {es: "keyword", bq: "STRING", check: checkHex},
	LeafBoolean:                  {es: "boolean", bq: "BOOLEAN", check: checkBool},
	LeafSigned8BitInteger:        {es: "byte", bq: "INTEGER", check: checkInteger},
	LeafSigned16BitInteger:       {es: "short", bq: "INTEGER", check: checkInteger},
	LeafSigned32BitInteger:       {es: "integer", bq: "INTEGER", check: checkInteger},
	LeafSigned64BitInteger:       {es: "long", bq: "INTEGER", check: checkInteger},
	LeafUnsigned8BitInteger:      {es: "short", bq: "INTEGER", check: checkInteger},
	LeafUnsigned16BitInteger:     {es: "integer", bq: "INTEGER", check: checkInteger},
	LeafUnsigned32BitInteger:     {es: "long", bq: "INTEGER", check: checkInteger},
	LeafDouble:                   {es: "double", bq: "FLOAT", check: checkNumber},
	LeafFloat:                    {es: "float", bq: "FLOAT", check: checkNumber},
	LeafTimestamp:                {es: "date", bq: "TIMESTAMP", check: checkTimestamp},
	LeafEnum:                     {es: "keyword", bq: "STRING", check: checkEnum},
	LeafFQDN:                     {es: "keyword", bq: "STRING", check: checkFQDN},
	LeafEmailAddress:             {es: "keyword", bq: "STRING", check: checkEmail},
	LeafURL:                      {es: "keyword", bq: "STRING", check: checkURL},
	LeafURI:                      {es: "keyword", bq: "STRING", check: checkURL},
	LeafOID:                      {es: "keyword", bq: "STRING", check: checkOID},
	LeafIPAddress:                {es: "ip", bq: "STRING", check: checkIP},
	LeafIPv4Address:              {es: "ip", bq: "STRING", check: checkIP},
	LeafIPv6Address:              {es: "ip", bq: "STRING", check: checkIP},
	LeafLintBool:                 {es: "boolean", bq: "STRING", check: checkLintBool},
}

var integerRanges = map[LeafKind][2]int64{
	LeafSigned8BitInteger:    {math.MinInt8, math.MaxInt8},
	LeafSigned16BitInteger:   {math.MinInt16, math.MaxInt16},
	LeafSigned32BitInteger:   {math.MinInt32, math.MaxInt32},
	LeafSigned64BitInteger:   {math.MinInt64, math.MaxInt64},
	LeafUnsigned8BitInteger:  {0, math.MaxUint8},
	LeafUnsigned16BitInteger: {0, math.MaxUint16},
	LeafUnsigned32BitInteger: {0, math.MaxUint32},
}

// LeafKinds returns every leaf kind, sorted by name.
func LeafKinds() []LeafKind {
	kinds := make([]LeafKind, 0, len(leafSpecs))
	for k := range leafSpecs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// LookupLeafKind returns the leaf kind with the given name.
func LookupLeafKind(name string) (LeafKind, bool) {
	k := LeafKind(name)
	_, ok := leafSpecs[k]
	return k, ok
}

// Leaf is a scalar field type.
type Leaf struct {
	kind   LeafKind
	values []string
	attrs  Attributes
}

// NewLeaf creates a leaf of the given kind. It panics on a kind that is not
// one of the Leaf* constants; use LookupLeafKind for untrusted names.
func NewLeaf(kind LeafKind, opts ...Option) Leaf {
	if _, ok := leafSpecs[kind]; !ok {
		panic(fmt.Sprintf("schema: unknown leaf kind %q", kind))
	}
	return Leaf{kind: kind, attrs: applyOptions(Attributes{}, opts)}
}

// Enum creates an enumerated string. With no values the enum is open and
// accepts any string.
func Enum(values []string, opts ...Option) Leaf {
	l := NewLeaf(LeafEnum, opts...)
	l.values = slices.Clone(values)
	return l
}

func (l Leaf) Kind() Kind             { return KindLeaf }
func (l Leaf) TypeName() string       { return string(l.kind) }
func (l Leaf) LeafKind() LeafKind     { return l.kind }
func (l Leaf) Attributes() Attributes { return l.attrs.clone() }
func (l Leaf) Doc() string            { return l.attrs.Doc }
func (l Leaf) Values() []string       { return slices.Clone(l.values) }
func (l Leaf) IsOpenEnum() bool       { return l.kind == LeafEnum && len(l.values) == 0 }
func (l Leaf) withAttributes(a Attributes) FieldType {
	l.attrs = a
	return l
}

// Native returns the storage type of the leaf in target t.
func (l Leaf) Native(t Target) NativeType {
	spec := leafSpecs[l.kind]
	if t == TargetBigQuery {
		return NativeType{Type: spec.bq}
	}
	return NativeType{Type: spec.es, Analyzer: spec.analyzer}
}

// Analyzed reports whether the leaf is tokenized by the search target.
func (l Leaf) Analyzed() bool {
	return leafSpecs[l.kind].analyzer != ""
}

func (l Leaf) Validate(value any) error {
	var errs ValidationErrors
	l.validate("", value, &errs)
	return errs.errOrNil()
}

func (l Leaf) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		return
	}
	if err := leafSpecs[l.kind].check(l, value); err != nil {
		errs.add(path, err)
	}
}

func mismatch(l Leaf, value any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrTypeMismatch, l.kind, leafExpectation(l.kind), value)
}

func leafExpectation(k LeafKind) string {
	switch {
	case k == LeafBoolean:
		return "a boolean"
	case k == LeafLintBool:
		return "a boolean or outcome name"
	case integerRanges[k] != [2]int64{}:
		return "an integer"
	case k == LeafDouble || k == LeafFloat:
		return "a number"
	}
	return "a string"
}

func checkString(l Leaf, v any) error {
	if _, ok := v.(string); !ok {
		return mismatch(l, v)
	}
	return nil
}

func checkBinary(l Leaf, v any) error {
	switch b := v.(type) {
	case []byte:
		return nil
	case string:
		if _, err := base64.StdEncoding.DecodeString(b); err != nil {
			return fmt.Errorf("%w: %s is not base64: %v", ErrTypeMismatch, l.kind, err)
		}
		return nil
	}
	return mismatch(l, v)
}

func checkHex(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("%w: %s is not hex: %v", ErrTypeMismatch, l.kind, err)
	}
	return nil
}

func checkBool(l Leaf, v any) error {
	if _, ok := v.(bool); !ok {
		return mismatch(l, v)
	}
	return nil
}

func checkInteger(l Leaf, v any) error {
	n, ok := integerValue(v)
	if !ok {
		return mismatch(l, v)
	}
	r := integerRanges[l.kind]
	if n < r[0] || n > r[1] {
		return fmt.Errorf("%w: %d out of range for %s", ErrTypeMismatch, n, l.kind)
	}
	return nil
}

// integerValue accepts Go integers, integral floats (encoding/json decodes
// numbers as float64) and json.Number.
func integerValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintValue(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintValue(n)
	case float32:
		return floatValue(float64(n))
	case float64:
		return floatValue(n)
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func uintValue(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatValue(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func checkNumber(l Leaf, v any) error {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	case json.Number:
		if _, err := n.Float64(); err != nil {
			return mismatch(l, v)
		}
		return nil
	}
	return mismatch(l, v)
}

func checkTimestamp(l Leaf, v any) error {
	switch t := v.(type) {
	case time.Time:
		return nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, t); err != nil {
			return fmt.Errorf("%w: %s is not RFC 3339: %q", ErrTypeMismatch, l.kind, t)
		}
		return nil
	}
	return mismatch(l, v)
}

func checkEnum(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if len(l.values) > 0 && !slices.Contains(l.values, s) {
		return fmt.Errorf("%w: %q not in [%s]", ErrInvalidEnumValue, s, strings.Join(l.values, ", "))
	}
	return nil
}

func checkFQDN(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if s == "" || len(s) > 253 || strings.ContainsAny(s, " \t\r\n/") {
		return fmt.Errorf("%w: %q is not a domain name", ErrTypeMismatch, s)
	}
	return nil
}

func checkEmail(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("%w: %q is not an email address", ErrTypeMismatch, s)
	}
	return nil
}

func checkURL(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if _, err := url.Parse(s); err != nil {
		return fmt.Errorf("%w: %q is not a %s", ErrTypeMismatch, s, l.kind)
	}
	return nil
}

var oidPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

func checkOID(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	if !oidPattern.MatchString(s) {
		return fmt.Errorf("%w: %q is not a dotted OID", ErrTypeMismatch, s)
	}
	return nil
}

func checkIP(l Leaf, v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(l, v)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return fmt.Errorf("%w: %q is not an IP address", ErrTypeMismatch, s)
	}
	switch {
	case l.kind == LeafIPv4Address && !addr.Is4():
		return fmt.Errorf("%w: %q is not an IPv4 address", ErrTypeMismatch, s)
	case l.kind == LeafIPv6Address && !addr.Is6():
		return fmt.Errorf("%w: %q is not an IPv6 address", ErrTypeMismatch, s)
	}
	return nil
}

// lintOutcomes mirrors the outcome names of the lint package, which depends
// on this one.
var lintOutcomes = []string{"RESERVED", "NA", "NE", "PASS", "INFO", "NOTICE", "WARN", "FAIL", "ERROR", "FATAL", "UNKNOWN"}

func checkLintBool(l Leaf, v any) error {
	switch s := v.(type) {
	case bool:
		return nil
	case string:
		if slices.Contains(lintOutcomes, strings.ToUpper(s)) {
			return nil
		}
		return fmt.Errorf("%w: %q is not a lint outcome", ErrInvalidEnumValue, s)
	}
	return mismatch(l, v)
}
