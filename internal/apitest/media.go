package apitest

import "bytes"

// MP4 returns n bytes starting with an ISO-BMFF ftyp box, enough for
// content sniffing to report video/mp4.
func MP4(n int) []byte {
	head := []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
	if n < len(head) {
		n = len(head)
	}
	return append(head, bytes.Repeat([]byte{0}, n-len(head))...)
}
