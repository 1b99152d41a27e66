package input

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

var (
	reMethod          = regexp.MustCompile(`^[a-zA-Z]+$`)
	reHeaderFieldName = regexp.MustCompile("^[-!#$%&'*+.^_|~a-zA-Z0-9]+$")
	reScheme          = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+-.]*://`)
	emptyMethod       = Method("")
)

type itemType int

const (
	unknownItem itemType = iota
	httpHeaderItem
	urlParameterItem
	dataFieldItem
	rawJSONFieldItem
	bodyFileItem
)

type UsageError string

func (e *UsageError) Error() string {
	return string(*e)
}

func newUsageError(message string) error {
	u := UsageError(message)
	return errors.WithStack(&u)
}

type state struct {
	preferredBodyType bodyType
	bodyType          bodyType
	stdinConsumed     bool
	stdinBody         bool
	userHeaders       map[string]bool
	jsonFields        map[string]interface{}
}

// ParseArgs turns `[METHOD] URL [ITEM ...]` into a builder carrying every
// item and the request-scoped options.
func ParseArgs(args []string, stdin io.Reader, options *Options) (*request.Builder, error) {
	var argMethod string
	var argURL string
	var argItems []string
	switch len(args) {
	case 0:
		return nil, newUsageError("URL is required")
	case 1:
		argURL = args[0]
	default:
		if reMethod.MatchString(args[0]) {
			argMethod = args[0]
			argURL = args[1]
			argItems = args[2:]
		} else {
			argURL = args[0]
			argItems = args[1:]
		}
	}

	u, err := parseURL(argURL)
	if err != nil {
		return nil, err
	}
	b := request.NewBuilder("", u.String())

	state := state{
		userHeaders: map[string]bool{},
		jsonFields:  map[string]interface{}{},
	}
	state.preferredBodyType, err = determinePreferredBodyType(options)
	if err != nil {
		return nil, err
	}

	for _, arg := range argItems {
		if err := parseItem(arg, stdin, &state, b); err != nil {
			return nil, err
		}
	}
	if err := finishBody(&state, b); err != nil {
		return nil, err
	}
	if options.ReadStdin && !state.stdinConsumed {
		if state.bodyType != emptyBody {
			return nil, errors.New("request body (from stdin) and request item (key=value) cannot be mixed")
		}
		b.SetBodyStream(stdin)
		state.stdinConsumed = true
		state.stdinBody = true
	}

	if argMethod != "" {
		method, err := parseMethod(argMethod)
		if err != nil {
			return nil, err
		}
		b.Method(string(method))
	} else {
		b.Method(string(guessMethod(&state)))
	}

	if err := applyOptions(options, b); err != nil {
		return nil, err
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func determinePreferredBodyType(options *Options) (bodyType, error) {
	if options.JSON && options.Form {
		return emptyBody, errors.New("You cannot specify both of --json and --form")
	}
	if options.Form {
		return formBody, nil
	}
	return jsonBody, nil
}

func parseMethod(s string) (Method, error) {
	if !reMethod.MatchString(s) {
		return emptyMethod, errors.Errorf("METHOD must consist of alphabets: %s", s)
	}
	return Method(strings.ToUpper(s)), nil
}

func guessMethod(state *state) Method {
	if state.bodyType == emptyBody && !state.stdinBody {
		return Method("GET")
	}
	return Method("POST")
}

func parseURL(s string) (*url.URL, error) {
	defaultScheme := "http"
	defaultHost := "localhost"

	// ex) :8080/hello or /hello
	if strings.HasPrefix(s, ":") || strings.HasPrefix(s, "/") {
		s = defaultHost + s
	}

	// ex) example.com/hello
	if !reScheme.MatchString(s) {
		s = defaultScheme + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, newUsageError("Invalid URL: " + s)
	}
	u.Host = strings.TrimSuffix(u.Host, ":")
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

func parseItem(s string, stdin io.Reader, state *state, b *request.Builder) error {
	itemType, name, value := splitItem(s)
	switch itemType {
	case dataFieldItem:
		if err := setBodyType(state, state.preferredBodyType); err != nil {
			return err
		}
		field, err := parseField(name, value, stdin, state)
		if err != nil {
			return err
		}
		value, err := resolveFieldValue(field)
		if err != nil {
			return err
		}
		if state.bodyType == formBody {
			b.AddFormParameter(name, value)
		} else {
			state.jsonFields[name] = value
		}
	case rawJSONFieldItem:
		if state.preferredBodyType != jsonBody {
			return errors.New("raw JSON field item cannot be used in non-JSON body")
		}
		if err := setBodyType(state, jsonBody); err != nil {
			return err
		}
		field, err := parseField(name, value, stdin, state)
		if err != nil {
			return err
		}
		value, err := resolveFieldValue(field)
		if err != nil {
			return err
		}
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return errors.Errorf("invalid JSON at '%s': %s", name, value)
		}
		state.jsonFields[name] = v
	case httpHeaderItem:
		if !isValidHeaderFieldName(name) {
			return errors.Errorf("invalid header field name: %s", name)
		}
		field, err := parseField(name, value, stdin, state)
		if err != nil {
			return err
		}
		value, err := resolveFieldValue(field)
		if err != nil {
			return err
		}
		b.AddHeader(name, value)
		state.userHeaders[http.CanonicalHeaderKey(name)] = true
	case urlParameterItem:
		field, err := parseField(name, value, stdin, state)
		if err != nil {
			return err
		}
		value, err := resolveFieldValue(field)
		if err != nil {
			return err
		}
		b.AddQueryParameter(name, value)
	case bodyFileItem:
		if err := setBodyType(state, fileBody); err != nil {
			return err
		}
		b.SetBodyFile(value)
	default:
		return errors.Errorf("unknown request item: %s", s)
	}
	return b.Err()
}

func setBodyType(state *state, t bodyType) error {
	if state.bodyType != emptyBody && state.bodyType != t {
		return errors.New("request body (from file) and data field items cannot be mixed")
	}
	state.bodyType = t
	return nil
}

func finishBody(state *state, b *request.Builder) error {
	if state.bodyType != jsonBody {
		return nil
	}
	body, err := json.Marshal(state.jsonFields)
	if err != nil {
		return errors.Wrap(err, "marshaling JSON of HTTP body")
	}
	b.SetBody(body)
	if !state.userHeaders["Content-Type"] {
		b.SetHeader("Content-Type", "application/json")
	}
	if !state.userHeaders["Accept"] {
		b.SetHeader("Accept", "application/json, */*")
	}
	return nil
}

func splitItem(s string) (itemType, string, string) {
	for i, c := range s {
		switch c {
		case ':':
			if i+1 < len(s) && s[i+1] == '=' {
				return rawJSONFieldItem, s[:i], s[i+2:]
			} else {
				return httpHeaderItem, s[:i], s[i+1:]
			}
		case '=':
			if i+1 < len(s) && s[i+1] == '=' {
				return urlParameterItem, s[:i], s[i+2:]
			} else {
				return dataFieldItem, s[:i], s[i+1:]
			}
		case '@':
			if i == 0 && len(s) > 1 {
				return bodyFileItem, "", s[1:]
			}
			return unknownItem, "", ""
		}
	}
	return unknownItem, "", ""
}

func isValidHeaderFieldName(s string) bool {
	return reHeaderFieldName.MatchString(s)
}

func parseField(name, value string, stdin io.Reader, state *state) (Field, error) {
	// TODO: handle escaped "@"
	if strings.HasPrefix(value, "@") {
		if value[1:] == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return Field{}, errors.Wrapf(err, "reading stdin for '%s'", name)
			}
			state.stdinConsumed = true
			return Field{Name: name, Value: string(b), IsFile: false}, nil
		}
		return Field{Name: name, Value: value[1:], IsFile: true}, nil
	}
	return Field{Name: name, Value: value, IsFile: false}, nil
}

func resolveFieldValue(field Field) (string, error) {
	if !field.IsFile {
		return field.Value, nil
	}
	data, err := os.ReadFile(field.Value)
	if err != nil {
		return "", errors.Wrapf(err, "reading field value of '%s'", field.Name)
	}
	return string(data), nil
}

func applyOptions(options *Options, b *request.Builder) error {
	if options.Auth.Enabled {
		scheme := options.Auth.Scheme
		if scheme == "" {
			scheme = request.BasicAuth
		}
		b.SetRealm(&request.Realm{
			Scheme:    scheme,
			Principal: options.Auth.UserName,
			Password:  options.Auth.Password,
		})
	}
	if options.Proxy != "" {
		proxy, err := parseProxy(options.Proxy)
		if err != nil {
			return err
		}
		b.SetProxyServer(proxy)
	}
	for _, c := range options.Cookies {
		name, value, ok := strings.Cut(c, "=")
		if !ok {
			return errors.Errorf("cookie must be NAME=VALUE: %s", c)
		}
		b.AddCookie(request.Cookie{Name: strings.TrimSpace(name), Value: value})
	}
	if options.Timeout > 0 {
		b.SetConfig(&request.Config{Timeout: options.Timeout})
	}
	return nil
}

func parseProxy(s string) (*request.ProxyServer, error) {
	if !reScheme.MatchString(s) {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid proxy URL: %s", s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}
	proxy := &request.ProxyServer{
		Protocol: u.Scheme,
		Host:     u.Hostname(),
	}
	if port := u.Port(); port != "" {
		proxy.Port, err = strconv.Atoi(port)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid proxy port: %s", port)
		}
	}
	if u.User != nil {
		proxy.Principal = u.User.Username()
		proxy.Password, _ = u.User.Password()
	}
	noProxy := os.Getenv("NO_PROXY")
	if noProxy == "" {
		noProxy = os.Getenv("no_proxy")
	}
	if noProxy != "" {
		proxy.NonProxyHosts = strings.Split(noProxy, ",")
	}
	return proxy, nil
}
