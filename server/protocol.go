package server

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
)

const (
	MaxKeySize          = 250
	MaxValueSize        = 128 * (1 << 20) // 128 MB.
	DefaultMaxValueSize = 1 << 20
	MaxCommandSize      = 1 << 12

	MaxRelativeExptime = 60 * 60 * 24 * 30 // 30 days.

	Separator = "\r\n"

	SetCommand      = "set"
	GetCommand      = "get"
	GetsCommand     = "gets"
	DeleteCommand   = "delete"
	TouchCommand    = "touch"
	TTLCommand      = "ttl"
	ScanCommand     = "scan"
	FlushAllCommand = "flush_all"
	StatsCommand    = "stats"

	CounterSetCommand    = "cset"
	CounterGetCommand    = "cget"
	IncrCommand          = "incr"
	DecrCommand          = "decr"
	CounterDeleteCommand = "cdelete"
	CounterTTLCommand    = "cttl"
	CounterTouchCommand  = "ctouch"
	CounterScanCommand   = "cscan"

	QueueSetCommand    = "qset"
	QueueListCommand   = "qlist"
	EnqueueCommand     = "enqueue"
	DequeueCommand     = "dequeue"
	QueueSizeCommand   = "qsize"
	QueueDeleteCommand = "qdelete"
	QueueTTLCommand    = "qttl"
	QueueTouchCommand  = "qtouch"
	QueueScanCommand   = "qscan"

	NoReplyOption = "noreply"

	StoredResponse      = "STORED"
	ValueResponse       = "VALUE"
	EndResponse         = "END"
	DeletedResponse     = "DELETED"
	NotFoundResponse    = "NOT_FOUND"
	ExpiredResponse     = "EXPIRED"
	EmptyResponse       = "EMPTY"
	TouchedResponse     = "TOUCHED"
	OkResponse          = "OK"
	TTLResponse         = "TTL"
	SizeResponse        = "SIZE"
	KeyResponse         = "KEY"
	StatResponse        = "STAT"
	ErrorResponse       = "ERROR"
	ClientErrorResponse = "CLIENT_ERROR"
	ServerErrorResponse = "SERVER_ERROR"

	// Implementation specific consts.
	InBufferSize  = 16 * (1 << 10)
	OutBufferSize = 16 * (1 << 10)
)

var _ = func() (_ struct{}) {
	if MaxCommandSize < InBufferSize {
		panic("max command should fit in input buffer")
	}
	return
}

var (
	ErrTooLargeKey          = errors.New("too large key")
	ErrTooLargeValue        = errors.New("too large value")
	ErrInvalidOption        = errors.New("invalid option")
	ErrTooManyFields        = errors.New("too many fields")
	ErrMoreFieldsRequired   = errors.New("more fields required")
	ErrTooLargeCommand      = errors.New("command length is too big")
	ErrEmptyCommand         = errors.New("empty command")
	ErrFieldsParseError     = errors.New("fields parse error")
	ErrInvalidLineSeparator = errors.New("invalid line separator")
	ErrInvalidCharInKey     = errors.New("key contains invalid characters")
	ErrInvalidExptime       = errors.New("exptime must be positive")
	ErrInvalidDelta         = errors.New("delta must be 1")

	separatorBytes = []byte(Separator)
)

func isInvalidFieldChar(b byte) bool {
	return b <= ' ' || b == 127
}

func checkKey(p []byte) error {
	if len(p) > MaxKeySize {
		return stackerr.Wrap(ErrTooLargeKey)
	}
	if len(p) == 0 {
		return stackerr.Wrap(ErrMoreFieldsRequired)
	}
	for _, b := range p {
		if isInvalidFieldChar(b) {
			return stackerr.Wrap(ErrInvalidCharInKey)
		}
	}
	return nil
}

func parseKey(p []byte) (key string, err error) {
	err = checkKey(p)
	if err != nil {
		return
	}
	key = string(p)
	return
}

// setMeta is the parsed header of a set command. Exactly one of ttl and
// expireAt is meaningful: relative exptimes become a ttl, absolute unix
// exptimes become an expiration time.
type setMeta struct {
	key      string
	flags    uint32
	ttl      time.Duration
	expireAt time.Time
	bytes    int
}

func parseSetFields(fields [][]byte) (m setMeta, noreply bool, err error) {
	const extraRequired = 3
	var key []byte
	var extra [][]byte
	key, extra, noreply, err = parseKeyFields(fields, extraRequired)
	if err != nil {
		return
	}
	m.key, err = parseKey(key)
	if err != nil {
		return
	}
	var parsed [extraRequired]uint64
	for i, f := range extra {
		parsed[i], err = strconv.ParseUint(string(f), 10, 32)
		if err != nil {
			err = stackerr.Newf("%s: %s", ErrFieldsParseError, err)
			return
		}
	}
	m.flags = uint32(parsed[0])
	m.ttl, m.expireAt = parseExptime(int64(parsed[1]))
	m.bytes = int(parsed[2])
	if m.bytes < 0 || m.bytes > MaxValueSize {
		err = stackerr.Wrap(ErrTooLargeValue)
	}
	return
}

// parseExptime follows the memcached exptime convention: zero means no
// expiration, values up to thirty days are relative seconds, larger
// values are absolute unix time.
func parseExptime(exptime int64) (ttl time.Duration, expireAt time.Time) {
	switch {
	case exptime == 0:
	case exptime <= MaxRelativeExptime:
		ttl = time.Duration(exptime) * time.Second
	default:
		expireAt = time.Unix(exptime, 0)
	}
	return
}

// parseTouchExptime converts an exptime to an absolute expiration time.
// Zero is rejected: a stored expiration cannot be cleared, only moved.
func parseTouchExptime(field []byte) (at time.Time, err error) {
	exptime, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil || exptime <= 0 {
		err = stackerr.Wrap(ErrInvalidExptime)
		return
	}
	ttl, at := parseExptime(exptime)
	if at.IsZero() {
		at = time.Now().Add(ttl)
	}
	return at, nil
}

// parseSingleKey parses commands of the form "<cmd> <key> <extra>...
// [noreply]" where the key is the only free-form field.
func parseSingleKey(fields [][]byte, extraRequired int) (key string, extra [][]byte, noreply bool, err error) {
	var keyBytes []byte
	keyBytes, extra, noreply, err = parseKeyFields(fields, extraRequired)
	if err != nil {
		return
	}
	key, err = parseKey(keyBytes)
	return
}

// parseStoreExptime parses the exptime field of cset and qset.
func parseStoreExptime(field []byte) (ttl time.Duration, expireAt time.Time, err error) {
	exptime, parseErr := strconv.ParseUint(string(field), 10, 32)
	if parseErr != nil {
		err = stackerr.Newf("%s: %s", ErrFieldsParseError, parseErr)
		return
	}
	ttl, expireAt = parseExptime(int64(exptime))
	return
}

func parseKeyFields(fields [][]byte, extraRequired int) (key []byte, extra [][]byte, noreply bool, err error) {
	if len(fields) < 1+extraRequired {
		err = stackerr.Wrap(ErrMoreFieldsRequired)
		return
	}
	key = fields[0]
	extra = fields[1:][:extraRequired]
	options := fields[1:][extraRequired:]
	const maxOptions = 1
	if len(options) > maxOptions {
		err = stackerr.Wrap(ErrTooManyFields)
		return
	}
	if len(options) != 0 {
		if string(options[0]) != NoReplyOption {
			err = stackerr.Wrap(ErrInvalidOption)
			return
		}
		noreply = true
	}
	return
}

type reader struct {
	*bufio.Reader
}

func newReader(r io.Reader) reader {
	return reader{bufio.NewReaderSize(r, InBufferSize)}
}

// WARN: returned byte slices point into the read buffer and are
// invalidated by the next read.
func (r reader) readCommand() (command []byte, fields [][]byte, clientErr, err error) {
	var lineWithSeparator []byte
	// We accept only "\r\n" separator, so can't use ReadLine here.
	lineWithSeparator, err = r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Too big command.
		clientErr = stackerr.Wrap(ErrTooLargeCommand)
		err = r.discardCommand()
		return
	}
	if err == io.EOF {
		if len(lineWithSeparator) != 0 {
			err = stackerr.Wrap(io.ErrUnexpectedEOF)
		}
		return
	}
	if err != nil {
		err = stackerr.Wrap(err)
		return
	}
	if !bytes.HasSuffix(lineWithSeparator, separatorBytes) {
		clientErr = stackerr.Wrap(ErrInvalidLineSeparator)
		return
	}
	line := bytes.TrimSuffix(lineWithSeparator, separatorBytes)
	split := bytes.Fields(line)
	if len(split) == 0 {
		clientErr = stackerr.Wrap(ErrEmptyCommand)
		return
	}
	command = split[0]
	fields = split[1:]
	return
}

func (r reader) readDataBlock(size int) (data []byte, clientErr, err error) {
	data = make([]byte, size)
	_, err = io.ReadFull(r, data)
	if err != nil {
		data = nil
		err = stackerr.Wrap(err)
		return
	}
	var sep []byte
	sep, err = r.ReadSlice('\n')
	if err != nil {
		data = nil
		err = stackerr.Wrap(err)
		return
	}
	if !bytes.Equal(sep, separatorBytes) {
		data = nil
		clientErr = stackerr.Wrap(ErrInvalidLineSeparator)
	}
	return
}

// discardCommand discards all input until the next separator.
func (r reader) discardCommand() error {
	for {
		lineWithSeparator, err := r.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return err
		}
		if !bytes.HasSuffix(lineWithSeparator, separatorBytes) {
			continue
		}
		return nil
	}
}
