package config

import (
	"reflect"
)

// Overlay copies every non-zero field of src onto dst, recursing into
// nested structs. Non-empty slices replace dst's slice. Both arguments must
// be pointers to the same struct type. The CLI uses it to lay explicitly
// set flags over the loaded config.
func Overlay(dst, src any) {
	dstVal := reflect.ValueOf(dst)
	srcVal := reflect.ValueOf(src)

	if dstVal.Kind() != reflect.Ptr || srcVal.Kind() != reflect.Ptr {
		return
	}
	if dstVal.IsNil() || srcVal.IsNil() || dstVal.Type() != srcVal.Type() {
		return
	}

	overlayValue(dstVal.Elem(), srcVal.Elem())
}

func overlayValue(dst, src reflect.Value) {
	if !dst.CanSet() || !src.IsValid() {
		return
	}

	switch dst.Kind() {
	case reflect.Struct:
		for i := 0; i < dst.NumField(); i++ {
			overlayValue(dst.Field(i), src.Field(i))
		}
	case reflect.Slice:
		if src.Len() > 0 {
			dst.Set(src)
		}
	default:
		if !src.IsZero() {
			dst.Set(src)
		}
	}
}
