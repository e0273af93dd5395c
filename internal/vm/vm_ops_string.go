package vm

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

func init() {
	registerOp(OpToIdent, opToIdent)
	registerOp(OpSubstr, opSubstr)
	registerOp(OpFind, opFind)
	registerOp(OpTrim, opTrim)
	registerOp(OpNormalize, opNormalize)
	registerOp(OpStrColl, opStrColl)
}

// substr: ( str off len -- str' ) a view into the same buffer; len is
// clamped to the bytes available past off.
func opSubstr(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	strVal, offVal, lenVal := args[0], args[1], args[2]
	if strVal.Tag != TagString || offVal.Tag != TagInt || lenVal.Tag != TagInt {
		strVal.Destroy()
		return errf(verr.BadType, "substr: expected (string int int)")
	}
	off, n := int(offVal.I), int(lenVal.I)
	if off < 0 || off > strVal.Str.Len {
		strVal.Destroy()
		return errf(verr.BadArgs, "substr: offset %d out of range [0,%d]", off, strVal.Str.Len)
	}
	if n < 0 || off+n > strVal.Str.Len {
		n = strVal.Str.Len - off
	}
	sub := strVal.Str.Substr(off, n)
	strVal.Destroy()
	v.Push(StrFromView(sub))
	return nil
}

// find: ( str sub -- idx ) byte offset of the first occurrence of sub,
// or -1.
func opFind(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	strVal, subVal := args[0], args[1]
	if strVal.Tag != TagString || subVal.Tag != TagString {
		strVal.Destroy()
		subVal.Destroy()
		return errf(verr.BadType, "find: expected two strings")
	}
	idx := strings.Index(strVal.Str.Bytes(), subVal.Str.Bytes())
	strVal.Destroy()
	subVal.Destroy()
	v.Push(Int(int32(idx)))
	return nil
}

// trim: ( str -- str' ) strips leading and trailing whitespace.
func opTrim(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagString {
		return errf(verr.BadType, "trim: expected a string, got %s", a.Tag)
	}
	out := strings.TrimSpace(a.Str.Bytes())
	a.Destroy()
	v.Push(Str(out))
	return nil
}

// toident: ( str -- ident ) converts a string to an unescaped identifier
// value, the natural counterpart to toint/tofloat/parsenum (spec §4.7's
// conversion table), used by programs that build words programmatically.
func opToIdent(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagString && a.Tag != TagIdent {
		return errf(verr.BadType, "toident: expected a string, got %s", a.Tag)
	}
	s := a.Str.Bytes()
	a.Destroy()
	v.Push(Ident(s, 0))
	return nil
}

// normalizeForm maps the engine's form-name arguments to x/text/norm's
// four Unicode normalization forms.
var normalizeForm = map[string]norm.Form{
	"nfc":  norm.NFC,
	"nfd":  norm.NFD,
	"nfkc": norm.NFKC,
	"nfkd": norm.NFKD,
}

// normalize: ( str form -- str' ) Unicode-normalizes str to one of
// nfc/nfd/nfkc/nfkd, the string-handling counterpart the original engine
// leaves to the host locale; here backed by golang.org/x/text/unicode/norm.
func opNormalize(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	strVal, formVal := args[0], args[1]
	if strVal.Tag != TagString {
		formVal.Destroy()
		strVal.Destroy()
		return errf(verr.BadType, "normalize: expected a string, got %s", strVal.Tag)
	}
	if formVal.Tag != TagString && formVal.Tag != TagIdent {
		formVal.Destroy()
		strVal.Destroy()
		return errf(verr.BadType, "normalize: expected a form name, got %s", formVal.Tag)
	}
	formName := formVal.Str.Bytes()
	form, ok := normalizeForm[formName]
	formVal.Destroy()
	if !ok {
		strVal.Destroy()
		return errf(verr.BadArgs, "normalize: unknown form %q (want nfc/nfd/nfkc/nfkd)", formName)
	}
	out := form.String(strVal.Str.Bytes())
	strVal.Destroy()
	v.Push(Str(out))
	return nil
}

// strcoll: ( a b -- n ) locale-aware string comparison (negative/zero/
// positive), backed by golang.org/x/text/collate so sort order follows
// Unicode collation rules rather than raw byte order.
func opStrColl(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if a.Tag != TagString || b.Tag != TagString {
		a.Destroy()
		b.Destroy()
		return errf(verr.BadType, "strcoll: expected two strings")
	}
	col := collate.New(language.Und)
	n := col.CompareString(a.Str.Bytes(), b.Str.Bytes())
	a.Destroy()
	b.Destroy()
	v.Push(Int(int32(n)))
	return nil
}
