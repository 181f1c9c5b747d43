package apiclient

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies a logical request for caching: method, absolute URL
// and the serialized body. Headers never take part.
func Fingerprint(method, url string, body []byte) string {
	sum := ""
	if len(body) > 0 {
		sum = strconv.FormatUint(xxhash.Sum64(body), 16)
	}
	return method + ":" + url + ":" + sum
}
