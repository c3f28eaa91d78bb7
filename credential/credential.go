// Package credential encodes username/password pairs into the transportable
// form attached to every authenticated request.
package credential

import (
	"encoding/base64"
	"strings"

	"github.com/awnumar/memguard"
)

// Scheme is the authorization scheme tag prefixed to every credential.
const Scheme = "Basic"

// Encode returns Scheme + " " + base64("username:password").
//
// No validation is performed; callers check inputs first. The joined
// plaintext is wiped once it has been encoded.
func Encode(username, password string) string {
	plain := make([]byte, 0, len(username)+1+len(password))
	plain = append(plain, username...)
	plain = append(plain, ':')
	plain = append(plain, password...)
	defer memguard.WipeBytes(plain)

	return Scheme + " " + base64.StdEncoding.EncodeToString(plain)
}

// Decode reverses Encode. It is what a server does with the Authorization
// header; the client itself never needs it. The password may contain ':'.
func Decode(cred string) (username, password string, ok bool) {
	prefix := Scheme + " "
	if len(cred) < len(prefix) || !strings.EqualFold(cred[:len(prefix)], prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(cred[len(prefix):])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(raw), ":")
	return username, password, ok
}
