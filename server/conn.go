package server

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/internal/util"
	"github.com/rahultewari75/cache/log"
	"github.com/rahultewari75/cache/queue"
)

// item is the stored form of a cache value: the client's flags and the
// opaque data block.
type item struct {
	flags uint32
	data  []byte
}

type conn struct {
	reader
	*bufio.Writer
	closer io.Closer
	*ConnMeta
	Log log.Logger
}

func newConn(l log.Logger, m *ConnMeta, rwc io.ReadWriteCloser) *conn {
	return &conn{
		reader:   newReader(rwc),
		Writer:   bufio.NewWriterSize(rwc, OutBufferSize),
		closer:   rwc,
		ConnMeta: m,
		Log:      l,
	}
}

func (c *conn) serve() {
	c.Log.Debug("Serve connection.")
	defer func() {
		if r := recover(); r != nil {
			c.serverError(stackerr.Newf("Panic: %s", r))
			panic(r)
		}
		c.Close()
		c.Log.Debug("Connection closed.")
	}()

	err := c.loop()
	if err != nil {
		c.serverError(err)
	}
}

func (c *conn) Close() error {
	c.Flush()
	return c.closer.Close()
}

func (c *conn) loop() error {
	for {
		command, fields, clientErr, err := c.readCommand()
		if err != nil {
			if err == io.EOF {
				// Just client disconnect. Ok.
				return nil
			}
			return stackerr.Wrap(err)
		}
		if clientErr == nil {
			c.Log.Debugf("Command: %s.", command)
			c.Stats.Commands.Inc(1)
			switch string(command) { // No allocation.
			case GetCommand, GetsCommand:
				clientErr, err = c.get(fields)
			case SetCommand:
				clientErr, err = c.set(fields)
			case DeleteCommand:
				clientErr, err = c.delete(fields)
			case TouchCommand:
				clientErr, err = c.touch(fields)
			case TTLCommand:
				clientErr, err = c.ttl(fields)
			case ScanCommand:
				err = c.scan()
			case FlushAllCommand:
				clientErr, err = c.flushAll(fields)
			case StatsCommand:
				err = c.stats()

			case CounterSetCommand:
				clientErr, err = c.counterSet(fields)
			case CounterGetCommand:
				clientErr, err = c.counterGet(fields)
			case IncrCommand, DecrCommand:
				clientErr, err = c.counterAdd(string(command), fields)
			case CounterDeleteCommand:
				clientErr, err = c.counterDelete(fields)
			case CounterTTLCommand:
				clientErr, err = c.counterTTL(fields)
			case CounterTouchCommand:
				clientErr, err = c.counterTouch(fields)
			case CounterScanCommand:
				err = c.counterScan()

			case QueueSetCommand:
				clientErr, err = c.queueSet(fields)
			case QueueListCommand:
				clientErr, err = c.queueList(fields)
			case EnqueueCommand:
				clientErr, err = c.enqueue(fields)
			case DequeueCommand:
				clientErr, err = c.dequeue(fields)
			case QueueSizeCommand:
				clientErr, err = c.queueSize(fields)
			case QueueDeleteCommand:
				clientErr, err = c.queueDelete(fields)
			case QueueTTLCommand:
				clientErr, err = c.queueTTL(fields)
			case QueueTouchCommand:
				clientErr, err = c.queueTouch(fields)
			case QueueScanCommand:
				err = c.queueScan()

			default:
				c.Log.Errorf("Unexpected command: %s", command)
				err = c.sendResponse(ErrorResponse)
			}
		}
		if clientErr != nil && err == nil {
			err = c.sendClientError(clientErr)
		}
		if err != nil {
			return err
		}
	}
}

func (c *conn) get(fields [][]byte) (clientErr, err error) {
	if len(fields) == 0 {
		clientErr = stackerr.Wrap(ErrMoreFieldsRequired)
		return
	}
	for _, key := range fields {
		clientErr = checkKey(key)
		if clientErr != nil {
			return
		}
	}

	c.Cache.Lock()
	defer c.Cache.Unlock()
	for _, keyBytes := range fields {
		key := string(keyBytes)
		value, getErr := c.Cache.Get(key)
		if getErr != nil {
			// Expired and missing keys are both plain misses on the wire.
			c.Stats.GetMisses.Inc(1)
			continue
		}
		c.Stats.GetHits.Inc(1)
		i := value.(item)
		c.Log.Debugf("Sending value for key %s.", key)
		c.WriteString(ValueResponse)
		c.WriteByte(' ')
		c.WriteString(key)
		fmt.Fprintf(c, " %v %v"+Separator, i.flags, len(i.data))
		c.Write(i.data)
		_, err = c.WriteString(Separator)
		if err != nil {
			err = stackerr.Wrap(err)
			return
		}
	}
	err = c.sendResponse(EndResponse)
	return
}

func (c *conn) set(fields [][]byte) (clientErr, err error) {
	m, noreply, clientErr := parseSetFields(fields)
	if clientErr != nil {
		err = c.discardCommand()
		return
	}
	if m.bytes > c.MaxValueSize {
		clientErr = stackerr.Wrap(ErrTooLargeValue)
		_, err = c.Discard(m.bytes + len(Separator))
		return
	}

	data, clientErr, err := c.readDataBlock(m.bytes)
	if err != nil || clientErr != nil {
		return
	}

	c.Cache.Lock()
	err = c.Cache.Set(m.key, item{flags: m.flags, data: data}, m.ttl)
	if err == nil && !m.expireAt.IsZero() {
		err = c.Cache.Expire(m.key, m.expireAt)
	}
	c.Cache.Unlock()
	if err != nil {
		err = stackerr.Wrap(err)
		return
	}

	if noreply {
		err = c.Flush()
		return
	}
	err = c.sendResponse(StoredResponse)
	return
}

func (c *conn) delete(fields [][]byte) (clientErr, err error) {
	key, _, noreply, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}

	c.Cache.Lock()
	deleteErr := c.Cache.Delete(key)
	c.Cache.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := DeletedResponse
	if cache.IsNotFound(deleteErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) touch(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	at, clientErr := parseTouchExptime(extra[0])
	if clientErr != nil {
		return
	}

	c.Cache.Lock()
	touchErr := c.Cache.Expire(key, at)
	c.Cache.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := TouchedResponse
	if cache.IsNotFound(touchErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) ttl(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}

	c.Cache.Lock()
	remaining, ok, ttlErr := c.Cache.TTL(key)
	c.Cache.Unlock()

	switch {
	case cache.IsExpired(ttlErr):
		err = c.sendResponse(ExpiredResponse)
	case cache.IsNotFound(ttlErr):
		err = c.sendResponse(NotFoundResponse)
	case ttlErr != nil:
		err = stackerr.Wrap(ttlErr)
	case !ok:
		err = c.sendResponse(TTLResponse + " -1")
	default:
		err = c.sendResponse(fmt.Sprintf("%s %d", TTLResponse, int64(remaining/time.Second)))
	}
	return
}

func (c *conn) scan() error {
	c.Cache.Lock()
	keys := c.Cache.Scan()
	c.Cache.Unlock()
	return c.sendKeys(keys)
}

func (c *conn) flushAll(fields [][]byte) (clientErr, err error) {
	noreply := len(fields) == 1 && string(fields[0]) == NoReplyOption
	if len(fields) != 0 && !noreply {
		clientErr = stackerr.Wrap(ErrInvalidOption)
		return
	}

	c.Cache.Lock()
	c.Cache.Clear()
	c.Cache.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	err = c.sendResponse(OkResponse)
	return
}

func (c *conn) stats() error {
	for _, line := range c.Stats.Lines() {
		c.WriteString(line)
		c.WriteString(Separator)
	}
	return c.sendResponse(EndResponse)
}

func (c *conn) counterSet(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	ttl, expireAt, clientErr := parseStoreExptime(extra[0])
	if clientErr != nil {
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	err = c.Counters.Set(key, ttl)
	if err == nil && !expireAt.IsZero() {
		err = c.Counters.Expire(key, expireAt)
	}
	c.Counters.Unlock()
	if err != nil {
		err = stackerr.Wrap(err)
		return
	}

	if noreply {
		err = c.Flush()
		return
	}
	err = c.sendResponse(StoredResponse)
	return
}

func (c *conn) counterGet(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	value, getErr := c.Counters.Get(key)
	c.Counters.Unlock()

	if cache.IsNotFound(getErr) {
		err = c.sendResponse(NotFoundResponse)
		return
	}
	if getErr != nil {
		err = stackerr.Wrap(getErr)
		return
	}
	err = c.sendResponse(fmt.Sprintf("%d", value))
	return
}

func (c *conn) counterAdd(command string, fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	// Only unit steps are supported.
	if string(extra[0]) != "1" {
		clientErr = stackerr.Wrap(ErrInvalidDelta)
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	var value int64
	var addErr error
	if command == IncrCommand {
		value, addErr = c.Counters.Increment(key)
	} else {
		value, addErr = c.Counters.Decrement(key)
	}
	c.Counters.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	if cache.IsNotFound(addErr) {
		err = c.sendResponse(NotFoundResponse)
		return
	}
	if addErr != nil {
		err = stackerr.Wrap(addErr)
		return
	}
	err = c.sendResponse(fmt.Sprintf("%d", value))
	return
}

func (c *conn) counterDelete(fields [][]byte) (clientErr, err error) {
	key, _, noreply, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	deleteErr := c.Counters.Delete(key)
	c.Counters.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := DeletedResponse
	if cache.IsNotFound(deleteErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) counterTTL(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	remaining, ok, ttlErr := c.Counters.TTL(key)
	c.Counters.Unlock()

	err = c.sendTTL(remaining, ok, ttlErr)
	return
}

func (c *conn) counterTouch(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	at, clientErr := parseTouchExptime(extra[0])
	if clientErr != nil {
		return
	}
	c.Stats.CounterOps.Inc(1)

	c.Counters.Lock()
	touchErr := c.Counters.Expire(key, at)
	c.Counters.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := TouchedResponse
	if cache.IsNotFound(touchErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) counterScan() error {
	c.Stats.CounterOps.Inc(1)
	c.Counters.Lock()
	keys := c.Counters.Scan()
	c.Counters.Unlock()
	return c.sendKeys(keys)
}

func (c *conn) queueSet(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	ttl, expireAt, clientErr := parseStoreExptime(extra[0])
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	err = c.Queues.Set(key, ttl)
	if err == nil && !expireAt.IsZero() {
		err = c.Queues.Expire(key, expireAt)
	}
	c.Queues.Unlock()
	if err != nil {
		err = stackerr.Wrap(err)
		return
	}

	if noreply {
		err = c.Flush()
		return
	}
	err = c.sendResponse(StoredResponse)
	return
}

func (c *conn) queueList(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	items, getErr := c.Queues.Get(key)
	c.Queues.Unlock()

	if cache.IsNotFound(getErr) {
		err = c.sendResponse(NotFoundResponse)
		return
	}
	if getErr != nil {
		err = stackerr.Wrap(getErr)
		return
	}
	for _, it := range items {
		c.WriteString(ValueResponse)
		c.WriteByte(' ')
		c.WriteString(it)
		c.WriteString(Separator)
	}
	err = c.sendResponse(EndResponse)
	return
}

func (c *conn) enqueue(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	item := string(extra[0])
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	size, enqueueErr := c.Queues.Enqueue(key, item)
	c.Queues.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	if cache.IsNotFound(enqueueErr) {
		err = c.sendResponse(NotFoundResponse)
		return
	}
	if enqueueErr != nil {
		err = stackerr.Wrap(enqueueErr)
		return
	}
	err = c.sendResponse(fmt.Sprintf("%s %d", SizeResponse, size))
	return
}

func (c *conn) dequeue(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	item, dequeueErr := c.Queues.Dequeue(key)
	c.Queues.Unlock()

	switch {
	case queue.IsEmpty(dequeueErr):
		err = c.sendResponse(EmptyResponse)
	case cache.IsNotFound(dequeueErr):
		err = c.sendResponse(NotFoundResponse)
	case dequeueErr != nil:
		err = stackerr.Wrap(dequeueErr)
	default:
		err = c.sendResponse(ValueResponse + " " + item)
	}
	return
}

func (c *conn) queueSize(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	size, sizeErr := c.Queues.Size(key)
	c.Queues.Unlock()

	if cache.IsNotFound(sizeErr) {
		err = c.sendResponse(NotFoundResponse)
		return
	}
	if sizeErr != nil {
		err = stackerr.Wrap(sizeErr)
		return
	}
	err = c.sendResponse(fmt.Sprintf("%s %d", SizeResponse, size))
	return
}

func (c *conn) queueDelete(fields [][]byte) (clientErr, err error) {
	key, _, noreply, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	deleteErr := c.Queues.Delete(key)
	c.Queues.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := DeletedResponse
	if cache.IsNotFound(deleteErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) queueTTL(fields [][]byte) (clientErr, err error) {
	key, _, _, clientErr := parseSingleKey(fields, 0)
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	remaining, ok, ttlErr := c.Queues.TTL(key)
	c.Queues.Unlock()

	err = c.sendTTL(remaining, ok, ttlErr)
	return
}

func (c *conn) queueTouch(fields [][]byte) (clientErr, err error) {
	key, extra, noreply, clientErr := parseSingleKey(fields, 1)
	if clientErr != nil {
		return
	}
	at, clientErr := parseTouchExptime(extra[0])
	if clientErr != nil {
		return
	}
	c.Stats.QueueOps.Inc(1)

	c.Queues.Lock()
	touchErr := c.Queues.Expire(key, at)
	c.Queues.Unlock()

	if noreply {
		err = c.Flush()
		return
	}
	response := TouchedResponse
	if cache.IsNotFound(touchErr) {
		response = NotFoundResponse
	}
	err = c.sendResponse(response)
	return
}

func (c *conn) queueScan() error {
	c.Stats.QueueOps.Inc(1)
	c.Queues.Lock()
	keys := c.Queues.Scan()
	c.Queues.Unlock()
	return c.sendKeys(keys)
}

func (c *conn) sendKeys(keys []string) error {
	for _, key := range keys {
		c.WriteString(KeyResponse)
		c.WriteByte(' ')
		c.WriteString(key)
		c.WriteString(Separator)
	}
	return c.sendResponse(EndResponse)
}

func (c *conn) sendTTL(remaining time.Duration, ok bool, ttlErr error) error {
	switch {
	case cache.IsNotFound(ttlErr):
		return c.sendResponse(NotFoundResponse)
	case ttlErr != nil:
		return stackerr.Wrap(ttlErr)
	case !ok:
		return c.sendResponse(TTLResponse + " -1")
	}
	return c.sendResponse(fmt.Sprintf("%s %d", TTLResponse, int64(remaining/time.Second)))
}

func (c *conn) serverError(err error) {
	c.Log.Error("Server error: ", err)
	if err == io.ErrUnexpectedEOF {
		return
	}
	err = util.Unwrap(err)
	c.sendResponse(fmt.Sprintf("%s %s", ServerErrorResponse, err))
}

func (c *conn) sendClientError(err error) error {
	c.Log.Error("Client error: ", err)
	err = util.Unwrap(err)
	return c.sendResponse(fmt.Sprintf("%s %s", ClientErrorResponse, err))
}

func (c *conn) sendResponse(res string) error {
	c.WriteString(res)
	c.WriteString(Separator)
	return c.Flush()
}

func (c *conn) Flush() error {
	return stackerr.Wrap(c.Writer.Flush())
}
