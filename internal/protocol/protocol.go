// Package protocol implements the line-oriented request/response protocol
// that exposes the iteration kernel across a byte-stream boundary.
//
// The wire format is newline-terminated ASCII, strictly one response (or
// response group) per request:
//
//	CAL <precision> <za> <zb> <ca> <cb> <max_iter> <radius>
//	  -> CAL <Y|N> <final_za> <final_zb> <iterations>
//	CAL_VERBOSE <same fields>
//	  -> (CAL_STEP <za> <zb> <iter>)*  then the CAL summary line
//	EXIT
//	  -> EXIT
//	anything else
//	  -> BAD_CMD
//
// A handler has two states, Active and Terminated. Parse failures and
// domain violations are folded into BAD_CMD and never terminate the
// handler; only EXIT (or end of input) does.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/kernel"
	"github.com/Iron-Ham/mandelgrid/internal/numeric"
)

// Wire tokens.
const (
	CmdCal        = "CAL"
	CmdCalVerbose = "CAL_VERBOSE"
	CmdExit       = "EXIT"
	RespBadCmd    = "BAD_CMD"
	respStep      = "CAL_STEP"
)

// maxLine bounds a single protocol line. High-precision literals are long
// but bounded: seven fields at a few thousand digits each stay well under
// this.
const maxLine = 1 << 20

// State is the handler lifecycle state.
type State int

const (
	// StateActive accepts and answers requests.
	StateActive State = iota
	// StateTerminated follows an acknowledged EXIT; no further input is read.
	StateTerminated
)

// Request is one CAL invocation in wire form. Numeric operands stay in
// their literal text form; the handler decides precision at parse time.
type Request struct {
	Verbose   bool
	Precision int
	ZRe, ZIm  string
	CRe, CIm  string
	MaxIter   int
	Radius    string
}

// Encode renders the request as a single wire line, without the newline.
func (r Request) Encode() string {
	cmd := CmdCal
	if r.Verbose {
		cmd = CmdCalVerbose
	}
	return fmt.Sprintf("%s %d %s %s %s %s %d %s",
		cmd, r.Precision, r.ZRe, r.ZIm, r.CRe, r.CIm, r.MaxIter, r.Radius)
}

// Response is the summary line answering a CAL request.
type Response struct {
	Escaped    bool
	ZRe, ZIm   string
	Iterations int
}

// Encode renders the response as a single wire line, without the newline.
func (r Response) Encode() string {
	flag := "N"
	if r.Escaped {
		flag = "Y"
	}
	return fmt.Sprintf("%s %s %s %s %d", CmdCal, flag, r.ZRe, r.ZIm, r.Iterations)
}

// ParseResponse interprets a CAL summary line. BAD_CMD surfaces as
// ErrRequestRefused; anything else unrecognizable as ErrBadResponse, since
// it means the stream is desynchronized.
func ParseResponse(line string) (Response, error) {
	if line == RespBadCmd {
		return Response{}, errs.ErrRequestRefused
	}
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != CmdCal || (fields[1] != "Y" && fields[1] != "N") {
		return Response{}, errs.Wrapf(errs.ErrBadResponse, "line %q", line)
	}
	iters, err := strconv.Atoi(fields[4])
	if err != nil || iters < 0 {
		return Response{}, errs.Wrapf(errs.ErrBadResponse, "iteration count %q", fields[4])
	}
	return Response{
		Escaped:    fields[1] == "Y",
		ZRe:        fields[2],
		ZIm:        fields[3],
		Iterations: iters,
	}, nil
}

// Handler is the protocol state machine. It writes responses to w and
// flushes after every line, since the peer reads synchronously.
//
// Handler is not safe for concurrent use; the stream has no request
// identifiers, so callers must serialize externally (the worker does).
type Handler struct {
	w     *bufio.Writer
	state State
}

// NewHandler creates an Active handler writing responses to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{w: bufio.NewWriter(w)}
}

// State returns the current lifecycle state.
func (h *Handler) State() State { return h.state }

// HandleLine processes one input line (without its newline) and writes the
// response. Calling it on a Terminated handler returns ErrHandlerTerminated.
// Write failures are the only other error; malformed input is answered with
// BAD_CMD and a nil error.
func (h *Handler) HandleLine(line string) error {
	if h.state == StateTerminated {
		return errs.ErrHandlerTerminated
	}

	switch {
	case line == CmdExit:
		h.state = StateTerminated
		return h.respond(CmdExit)
	case strings.HasPrefix(line, CmdCal+" "):
		return h.handleCal(strings.Fields(line)[1:], false)
	case strings.HasPrefix(line, CmdCalVerbose+" "):
		return h.handleCal(strings.Fields(line)[1:], true)
	default:
		return h.respond(RespBadCmd)
	}
}

// handleCal validates the seven CAL fields, runs the kernel and writes the
// response. Any parse or domain failure collapses to BAD_CMD.
func (h *Handler) handleCal(fields []string, verbose bool) error {
	req, err := decodeCal(fields)
	if err != nil {
		return h.respond(RespBadCmd)
	}

	var stepErr error
	observe := func(z kernel.Complex, i int) {
		if stepErr != nil {
			return
		}
		stepErr = h.respond(fmt.Sprintf("%s %s %s %d",
			respStep, numeric.Format(z.Re), numeric.Format(z.Im), i))
	}
	if !verbose {
		observe = nil
	}

	res := kernel.IterateSteps(req.z, req.c, req.maxIter, req.radius, observe)
	if stepErr != nil {
		return stepErr
	}

	return h.respond(Response{
		Escaped:    res.Escaped,
		ZRe:        numeric.Format(res.Z.Re),
		ZIm:        numeric.Format(res.Z.Im),
		Iterations: res.Iterations,
	}.Encode())
}

// calArgs is a fully validated CAL request ready for the kernel.
type calArgs struct {
	z, c    kernel.Complex
	maxIter int
	radius  *big.Float
}

// decodeCal parses and validates the fields after the CAL keyword.
func decodeCal(fields []string) (*calArgs, error) {
	if len(fields) != 7 {
		return nil, errs.NewParseError(strings.Join(fields, " "), errs.ErrMalformedLine)
	}

	precision, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, errs.NewParseError(fields[0], errs.ErrMalformedLine)
	}
	if precision <= 0 {
		return nil, errs.NewDomainError("precision", precision, errs.ErrPrecisionRange)
	}
	maxIter, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, errs.NewParseError(fields[5], errs.ErrMalformedLine)
	}
	if maxIter < 0 {
		return nil, errs.NewDomainError("max_iter", maxIter, errs.ErrIterationRange)
	}

	prec := uint(precision)
	operands := make([]*big.Float, 4)
	for i, field := range fields[1:5] {
		if operands[i], err = numeric.Parse(field, prec); err != nil {
			return nil, err
		}
	}
	radius, err := numeric.Parse(fields[6], prec)
	if err != nil {
		return nil, err
	}
	if radius.Sign() < 0 {
		return nil, errs.NewDomainError("radius", fields[6], errs.ErrRadiusRange)
	}

	return &calArgs{
		z:       kernel.Complex{Re: operands[0], Im: operands[1]},
		c:       kernel.Complex{Re: operands[2], Im: operands[3]},
		maxIter: maxIter,
		radius:  radius,
	}, nil
}

// respond writes one line and flushes it immediately.
func (h *Handler) respond(line string) error {
	if _, err := h.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return h.w.Flush()
}

// Run serves a whole session: it reads newline-terminated requests from r
// and answers on w until EXIT is acknowledged or r is exhausted. It is the
// entry point of the engine subcommand.
func Run(r io.Reader, w io.Writer) error {
	h := NewHandler(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for h.state == StateActive && scanner.Scan() {
		if err := h.HandleLine(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
