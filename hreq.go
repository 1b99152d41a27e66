package hreq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/nojima/hreq/exchange"
	"github.com/nojima/hreq/flags"
	"github.com/nojima/hreq/input"
	"github.com/nojima/hreq/logger"
	"github.com/nojima/hreq/output"
	"github.com/nojima/hreq/version"
	"github.com/pkg/errors"
)

type Options struct {
	// Transport is used for the exchange when set.
	Transport http.RoundTripper
}

func Main(options *Options) error {
	flagSet, optionSet, err := flags.Parse(os.Args)
	if err != nil {
		return err
	}

	if optionSet.PrintVersion {
		fmt.Printf("hreq %s\n", version.Current())
		return nil
	}
	if optionSet.PrintLicenses {
		version.PrintLicenses(os.Stdout)
		return nil
	}
	if optionSet.Debug {
		logger.EnableDebug()
	}

	err = run(context.Background(), flagSet.Args(), os.Stdin, os.Stdout, os.Stderr, optionSet, options)
	if _, ok := errors.Cause(err).(*input.UsageError); ok {
		flagSet.PrintUsage(os.Stderr)
	}
	return err
}

func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	optionSet *flags.OptionSet,
	options *Options,
) error {
	outputOptions := &optionSet.OutputOptions
	exchangeOptions := optionSet.ExchangeOptions
	if options != nil && options.Transport != nil {
		exchangeOptions.Transport = options.Transport
	}

	// Parse positional arguments
	builder, err := input.ParseArgs(args, stdin, &optionSet.InputOptions)
	if err != nil {
		return err
	}
	d, err := builder.Build()
	if err != nil {
		return err
	}
	logger.Get().Debug().
		Str("method", d.Method()).
		Str("url", d.URL()).
		Stringer("body", d.Body().Kind()).
		Msg("request built")

	writer := bufio.NewWriter(stdout)
	defer writer.Flush()
	printer := newPrinter(writer, outputOptions)

	// Print request
	if outputOptions.PrintRequestHeader {
		if err := printer.PrintRequestLine(d); err != nil {
			return err
		}
		header, err := output.RequestHeader(d)
		if err != nil {
			return err
		}
		if err := printer.PrintHeader(header); err != nil {
			return err
		}
	}
	if outputOptions.PrintRequestBody {
		if err := printer.PrintRequestBody(d); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return errors.Wrap(err, "flushing output")
	}

	// Send request and receive response
	resp, err := exchange.Send(ctx, d, &exchangeOptions)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Print response
	if outputOptions.PrintResponseHeader {
		if err := printer.PrintStatusLine(resp.Proto, resp.Status, resp.StatusCode); err != nil {
			return err
		}
		if err := printer.PrintHeader(resp.Header); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return errors.Wrap(err, "flushing output")
	}

	if outputOptions.Download {
		u, err := d.RequestURL()
		if err != nil {
			return err
		}
		fileWriter := output.NewFileWriter(u, outputOptions)
		return fileWriter.Download(resp, stderr)
	}
	if outputOptions.PrintResponseBody {
		if err := printer.PrintBody(resp.Body, resp.Header.Get("Content-Type")); err != nil {
			return err
		}
	}
	return nil
}

func newPrinter(w io.Writer, options *output.Options) output.Printer {
	if !options.EnableFormat && !options.EnableColor {
		return output.NewPlainPrinter(w)
	}
	return output.NewPrettyPrinter(output.PrettyPrinterConfig{
		Writer:       w,
		EnableColor:  options.EnableColor,
		EnableFormat: options.EnableFormat,
	})
}
