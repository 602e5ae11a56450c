package aper

import (
	"reflect"

	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/per"
)

// encodeOpenTypeEnvelope serializes whatever encodeInner writes into a
// fresh, temporary Encoder, then wraps the result as an unconstrained
// octet string (X.691 clause 10.1.3 and the open-type rule of clause 8.18
// that an unknown-length inner encoding is length-prefixed so a decoder
// that does not understand it can skip over it).
func (c *codec) encodeOpenTypeEnvelope(encodeInner func(inner *codec) error) error {
	inner := &codec{cfg: c.cfg, enc: per.NewEncoder(c.cfg.aligned)}
	if err := encodeInner(inner); err != nil {
		return err
	}
	payload := inner.enc.Bytes()
	if len(payload) == 0 {
		payload = []byte{0}
	}
	return c.enc.EncodeOctetString(payload, nil, nil, false)
}

// decodeOpenTypeEnvelope mirrors encodeOpenTypeEnvelope: it reads an
// unconstrained octet string and hands a Decoder over its contents to
// decodeInner.
func (c *codec) decodeOpenTypeEnvelope(decodeInner func(inner *codec) error) error {
	payload, err := c.dec.DecodeOctetString(nil, nil, false)
	if err != nil {
		return err
	}
	inner := &codec{cfg: c.cfg, dec: per.NewDecoder(payload, c.cfg.aligned)}
	return decodeInner(inner)
}

func (c *codec) encodeOpenType(f *descriptor.Field, rv reflect.Value, path string) error {
	return aperr.Wrap(c.encodeOpenTypeEnvelope(func(inner *codec) error {
		return inner.encodeLeaf(f, rv, path)
	}), path, 0)
}

func (c *codec) decodeOpenType(f *descriptor.Field, rv reflect.Value, path string) error {
	return c.decodeOpenTypeEnvelope(func(inner *codec) error {
		return inner.decodeLeaf(f, rv, path)
	})
}

// encodeExtensionValue always wraps a SEQUENCE/CHOICE extension-addition
// or an unknown-to-us field's value as an open type, independent of that
// field's own IsOpenType flag, per the constructed-type driver's
// extension-addition rule.
func (c *codec) encodeExtensionValue(f *descriptor.Field, rv reflect.Value, path string) error {
	return c.encodeOpenTypeEnvelope(func(inner *codec) error {
		if f.Mode == descriptor.SeqOf {
			return inner.encodeSeqOf(f, rv, path)
		}
		return inner.encodeLeaf(f, rv, path)
	})
}

func (c *codec) decodeExtensionValue(f *descriptor.Field, rv reflect.Value, path string) error {
	return c.decodeOpenTypeEnvelope(func(inner *codec) error {
		if f.Mode == descriptor.SeqOf {
			return inner.decodeSeqOf(f, rv, path)
		}
		return inner.decodeLeaf(f, rv, path)
	})
}
