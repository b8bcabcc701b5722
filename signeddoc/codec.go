package signeddoc

import "github.com/fxamacker/cbor/v2"

// canonicalEncMode emits RFC 8949 deterministic CBOR: definite lengths,
// shortest-form integers, map keys sorted bytewise by their encoded form.
// Every byte this package puts on the wire goes through it.
var canonicalEncMode = func() cbor.EncMode {
	opts := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		TimeTag:       cbor.EncTagNone,
		ShortestFloat: cbor.ShortestFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
	}
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// strictDecMode rejects duplicate map keys so they surface as report entries
// instead of being silently dropped.
var strictDecMode = func() cbor.DecMode {
	opts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}
	mode, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()
