package flags

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nojima/hreq/exchange"
	"github.com/nojima/hreq/input"
	"github.com/nojima/hreq/output"
	"github.com/nojima/hreq/request"
	"github.com/pborman/getopt"
	"github.com/pkg/errors"
)

var reNumber = regexp.MustCompile(`^[0-9.]+$`)

type FlagSet interface {
	Args() []string
	PrintUsage(w io.Writer)
}

type OptionSet struct {
	InputOptions    input.Options
	ExchangeOptions exchange.Options
	OutputOptions   output.Options

	Debug         bool
	PrintVersion  bool
	PrintLicenses bool
}

type terminalInfo struct {
	stdinIsTerminal  bool
	stdoutIsTerminal bool
}

func Parse(args []string) (FlagSet, *OptionSet, error) {
	_, flagSet, optionSet, err := parse(args, terminalInfo{
		stdinIsTerminal:  isatty.IsTerminal(os.Stdin.Fd()),
		stdoutIsTerminal: isatty.IsTerminal(os.Stdout.Fd()),
	})
	return flagSet, optionSet, err
}

func parse(args []string, terminalInfo terminalInfo) ([]string, FlagSet, *OptionSet, error) {
	inputOptions := input.Options{}
	exchangeOptions := exchange.Options{}
	outputOptions := output.Options{}
	optionSet := &OptionSet{}
	var ignoreStdin bool
	var verifyFlag = "yes"
	var authFlag string
	var authTypeFlag = "basic"
	var prettyFlag string
	printFlag := "\000" // "\000" is a special value that indicates user did not specified --print
	timeout := "30s"

	flagSet := getopt.New()
	flagSet.SetParameters("[METHOD] URL [REQUEST_ITEM [REQUEST_ITEM ...]]")
	flagSet.BoolVarLong(&inputOptions.JSON, "json", 'j', "data items are serialized as JSON (default)")
	flagSet.BoolVarLong(&inputOptions.Form, "form", 'f', "data items are serialized as form fields")
	flagSet.StringVarLong(&printFlag, "print", 'p', "specifies what the output should contain (HBhb)")
	flagSet.StringVarLong(&prettyFlag, "pretty", 0, "controls output processing (all, colors, format, none)")
	flagSet.BoolVarLong(&ignoreStdin, "ignore-stdin", 0, "do not attempt to read stdin")
	flagSet.StringVarLong(&timeout, "timeout", 0, "timeout of the request in seconds or as a duration (e.g. 1m30s)")
	flagSet.BoolVarLong(&exchangeOptions.FollowRedirects, "follow", 'F', "follow 30x Location redirects")
	flagSet.IntVarLong(&exchangeOptions.MaxRedirects, "max-redirects", 0, "maximum number of redirects to follow")
	flagSet.StringVarLong(&verifyFlag, "verify", 0, "verify the server certificate (yes, no)")
	flagSet.BoolVarLong(&exchangeOptions.ForceHTTP1, "http1", 0, "disable HTTP/2")
	flagSet.StringVarLong(&authFlag, "auth", 'a', "USER[:PASS]; the password is prompted when omitted")
	flagSet.StringVarLong(&authTypeFlag, "auth-type", 'A', "authentication mechanism (basic, digest)")
	flagSet.StringVarLong(&inputOptions.Proxy, "proxy", 0, "proxy server URL")
	flagSet.ListVarLong(&inputOptions.Cookies, "cookie", 0, "NAME=VALUE cookie sent with the request")
	flagSet.BoolVarLong(&outputOptions.Download, "download", 'd', "download the body to a file")
	flagSet.StringVarLong(&outputOptions.OutputFile, "output", 'o', "save the downloaded body to FILE")
	flagSet.BoolVarLong(&outputOptions.Overwrite, "overwrite", 0, "overwrite an existing file on download")
	flagSet.BoolVarLong(&optionSet.Debug, "debug", 0, "print debug logs to stderr")
	flagSet.BoolVarLong(&optionSet.PrintVersion, "version", 0, "print version and exit")
	flagSet.BoolVarLong(&optionSet.PrintLicenses, "licenses", 0, "print licenses of bundled modules and exit")
	if err := flagSet.Getopt(args, nil); err != nil {
		return nil, nil, nil, errors.Wrap(err, "parsing flags")
	}

	// Check stdin
	if !ignoreStdin && !terminalInfo.stdinIsTerminal {
		inputOptions.ReadStdin = true
	}

	// Parse --print
	if err := parsePrintFlag(printFlag, terminalInfo.stdoutIsTerminal, &outputOptions); err != nil {
		return nil, nil, nil, err
	}

	// Parse --pretty
	if err := parsePrettyFlag(prettyFlag, terminalInfo.stdoutIsTerminal, &outputOptions); err != nil {
		return nil, nil, nil, err
	}

	// Parse --timeout
	d, err := parseDurationOrSeconds(timeout)
	if err != nil {
		return nil, nil, nil, err
	}
	inputOptions.Timeout = d

	// Parse --verify
	switch strings.ToLower(verifyFlag) {
	case "yes", "true":
	case "no", "false":
		exchangeOptions.SkipVerify = true
	default:
		return nil, nil, nil, errors.Errorf("Value of --verify must be yes or no: %s", verifyFlag)
	}

	if exchangeOptions.MaxRedirects < 0 {
		return nil, nil, nil, errors.Errorf("Value of --max-redirects must not be negative: %d", exchangeOptions.MaxRedirects)
	}

	// Parse --auth and --auth-type
	if authFlag != "" {
		auth, err := parseAuth(authFlag, authTypeFlag, askPassword)
		if err != nil {
			return nil, nil, nil, err
		}
		inputOptions.Auth = *auth
	}

	optionSet.InputOptions = inputOptions
	optionSet.ExchangeOptions = exchangeOptions
	optionSet.OutputOptions = outputOptions
	return flagSet.Args(), flagSet, optionSet, nil
}

func parsePrintFlag(printFlag string, stdoutIsTerminal bool, outputOptions *output.Options) error {
	if printFlag == "\000" {
		// --print is not specified
		if stdoutIsTerminal {
			outputOptions.PrintResponseHeader = true
			outputOptions.PrintResponseBody = true
		} else {
			outputOptions.PrintResponseBody = true
		}
		return nil
	}
	for _, c := range printFlag {
		switch c {
		case 'H':
			outputOptions.PrintRequestHeader = true
		case 'B':
			outputOptions.PrintRequestBody = true
		case 'h':
			outputOptions.PrintResponseHeader = true
		case 'b':
			outputOptions.PrintResponseBody = true
		default:
			return errors.Errorf("Invalid char in --print value (must be consist of HBhb): %c", c)
		}
	}
	return nil
}

func parsePrettyFlag(prettyFlag string, stdoutIsTerminal bool, outputOptions *output.Options) error {
	switch prettyFlag {
	case "":
		outputOptions.EnableFormat = stdoutIsTerminal
		outputOptions.EnableColor = stdoutIsTerminal
	case "all":
		outputOptions.EnableFormat = true
		outputOptions.EnableColor = true
	case "colors":
		outputOptions.EnableColor = true
	case "format":
		outputOptions.EnableFormat = true
	case "none":
	default:
		return errors.Errorf("Value of --pretty must be all, colors, format or none: %s", prettyFlag)
	}
	return nil
}

func parseDurationOrSeconds(timeout string) (time.Duration, error) {
	if reNumber.MatchString(timeout) {
		timeout += "s"
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return time.Duration(0), errors.Errorf("Value of --timeout must be a number or duration string: %v", timeout)
	}
	return d, nil
}

func parseAuth(authFlag, authTypeFlag string, ask func(user string) (string, error)) (*input.AuthOptions, error) {
	var scheme request.AuthScheme
	switch strings.ToLower(authTypeFlag) {
	case "basic":
		scheme = request.BasicAuth
	case "digest":
		scheme = request.DigestAuth
	default:
		return nil, errors.Errorf("Value of --auth-type must be basic or digest: %s", authTypeFlag)
	}

	user, password, ok := strings.Cut(authFlag, ":")
	if !ok {
		var err error
		password, err = ask(user)
		if err != nil {
			return nil, err
		}
	}
	return &input.AuthOptions{
		Enabled:  true,
		Scheme:   scheme,
		UserName: user,
		Password: password,
	}, nil
}
