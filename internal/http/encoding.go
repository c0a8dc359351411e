package http

import (
	"net/url"

	"golang.org/x/text/encoding/simplifiedchinese"
)

var gbk = simplifiedchinese.GBK

// DecodeGBK converts a GBK encoded body to UTF-8
func DecodeGBK(b []byte) (string, error) {
	out, err := gbk.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeGBK converts a UTF-8 string to GBK bytes
func EncodeGBK(s string) ([]byte, error) {
	return gbk.NewEncoder().Bytes([]byte(s))
}

// QueryEscapeGBK encodes s to GBK and percent-escapes the resulting bytes
func QueryEscapeGBK(s string) (string, error) {
	b, err := EncodeGBK(s)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}
