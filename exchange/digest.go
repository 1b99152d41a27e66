package exchange

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

// digestChallenge holds the parameters of a "WWW-Authenticate: Digest ..."
// header.
type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	qop       string
	algorithm string
}

func isDigestChallenge(header string) bool {
	return len(header) >= 7 && strings.EqualFold(header[:7], "Digest ")
}

func parseDigestChallenge(header string) (*digestChallenge, error) {
	if !isDigestChallenge(header) {
		return nil, errors.Errorf("not a digest challenge: %s", header)
	}
	params := parseAuthParams(header[7:])
	c := &digestChallenge{
		realm:     params["realm"],
		nonce:     params["nonce"],
		opaque:    params["opaque"],
		algorithm: params["algorithm"],
	}
	if c.nonce == "" {
		return nil, errors.New("digest challenge has no nonce")
	}
	if c.algorithm != "" && !strings.EqualFold(c.algorithm, "MD5") {
		return nil, errors.Errorf("unsupported digest algorithm: %s", c.algorithm)
	}
	for _, qop := range strings.Split(params["qop"], ",") {
		if strings.TrimSpace(qop) == "auth" {
			c.qop = "auth"
		}
	}
	if params["qop"] != "" && c.qop == "" {
		return nil, errors.Errorf("unsupported digest qop: %s", params["qop"])
	}
	return c, nil
}

// parseAuthParams splits `key=value, key="quoted, value"` pairs.
func parseAuthParams(s string) map[string]string {
	params := make(map[string]string)
	for {
		s = strings.TrimLeft(s, " \t,")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return params
		}
		key := strings.ToLower(strings.TrimSpace(s[:eq]))
		s = strings.TrimLeft(s[eq+1:], " \t")

		var value string
		if strings.HasPrefix(s, `"`) {
			var b strings.Builder
			i := 1
			for ; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				b.WriteByte(s[i])
			}
			value = b.String()
			if i < len(s) {
				i++
			}
			s = s[i:]
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				end = len(s)
			}
			value = strings.TrimSpace(s[:end])
			s = s[end:]
		}
		params[key] = value
	}
}

var generateCnonce = func() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating client nonce")
	}
	return hex.EncodeToString(b), nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// digestAuthorization answers challenge for r on behalf of realm.
func digestAuthorization(realm *request.Realm, r *http.Request, challenge *digestChallenge) (string, error) {
	uri := r.URL.RequestURI()
	ha1 := md5Hex(realm.Principal + ":" + challenge.realm + ":" + realm.Password)
	ha2 := md5Hex(r.Method + ":" + uri)

	fields := []string{
		fmt.Sprintf(`username="%s"`, realm.Principal),
		fmt.Sprintf(`realm="%s"`, challenge.realm),
		fmt.Sprintf(`nonce="%s"`, challenge.nonce),
		fmt.Sprintf(`uri="%s"`, uri),
	}

	var response string
	if challenge.qop == "" {
		response = md5Hex(ha1 + ":" + challenge.nonce + ":" + ha2)
		fields = append(fields, fmt.Sprintf(`response="%s"`, response))
	} else {
		const nc = "00000001"
		cnonce, err := generateCnonce()
		if err != nil {
			return "", err
		}
		response = md5Hex(strings.Join([]string{ha1, challenge.nonce, nc, cnonce, challenge.qop, ha2}, ":"))
		fields = append(fields,
			fmt.Sprintf(`response="%s"`, response),
			"qop="+challenge.qop,
			"nc="+nc,
			fmt.Sprintf(`cnonce="%s"`, cnonce),
		)
	}
	if challenge.algorithm != "" {
		fields = append(fields, "algorithm="+challenge.algorithm)
	}
	if challenge.opaque != "" {
		fields = append(fields, fmt.Sprintf(`opaque="%s"`, challenge.opaque))
	}
	return "Digest " + strings.Join(fields, ", "), nil
}
