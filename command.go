package rtmpproxy

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/torresjeff/rtmpproxy/amf/amf0"
	"go.uber.org/zap"
)

const (
	CommandConnect       = "connect"
	CommandReleaseStream = "releaseStream"
	CommandFCPublish     = "FCPublish"
	CommandPublish       = "publish"
)

// Command is the body of an AMF0 command message: ["name", transaction id, args...].
type Command struct {
	Name          string
	TransactionID float64
	Args          []interface{}
}

var _ RTMPMessage = (*Command)(nil)

// UnmarshalRTMPMessage decodes a full command payload, arguments included.
func (c *Command) UnmarshalRTMPMessage(message []byte) error {
	d := amf0.NewDecoder(bytes.NewReader(message))
	if err := c.decodeHead(d); err != nil {
		return err
	}
	return c.decodeArgs(d)
}

func (c *Command) decodeHead(d *amf0.Decoder) error {
	name, err := d.DecodeString()
	if err != nil {
		return errors.Wrap(err, "command name")
	}
	transactionID, err := d.DecodeNumber()
	if err != nil {
		return errors.Wrapf(err, "%s transaction id", name)
	}
	c.Name = name
	c.TransactionID = transactionID
	c.Args = c.Args[:0]
	return nil
}

// decodeArgs reads values until the payload is exhausted.
func (c *Command) decodeArgs(d *amf0.Decoder) error {
	for {
		v, err := d.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "%s argument %d", c.Name, len(c.Args))
		}
		c.Args = append(c.Args, v)
	}
}

// MarshalRTMPMessage encodes the name, the transaction id and every argument in order.
func (c *Command) MarshalRTMPMessage() ([]byte, error) {
	size := amf0.Size(c.Name) + amf0.Size(c.TransactionID)
	for _, arg := range c.Args {
		size += amf0.Size(arg)
	}
	b := make([]byte, 0, size)
	b, err := amf0.Append(b, c.Name)
	if err != nil {
		return nil, err
	}
	if b, err = amf0.Append(b, c.TransactionID); err != nil {
		return nil, err
	}
	for i, arg := range c.Args {
		if b, err = amf0.Append(b, arg); err != nil {
			return nil, errors.Wrapf(err, "%s argument %d", c.Name, i)
		}
	}
	return b, nil
}

// Hijacker rewrites the commands that carry the client's idea of the application and stream,
// so the real server always sees the configured ones. publish is the last command it rewrites.
type Hijacker struct {
	logger     *zap.Logger
	appName    string
	playURL    string
	streamName string
}

func NewHijacker(logger *zap.Logger, appName, playURL, streamName string) *Hijacker {
	return &Hijacker{
		logger:     logger,
		appName:    appName,
		playURL:    playURL,
		streamName: streamName,
	}
}

// HijackCommand returns the payload to forward and whether interception is complete.
// Commands it does not rewrite are returned unmodified without decoding their arguments.
func (h *Hijacker) HijackCommand(payload []byte) ([]byte, bool, error) {
	var head Command
	if err := head.decodeHead(amf0.NewDecoder(bytes.NewReader(payload))); err != nil {
		return nil, false, err
	}

	switch head.Name {
	case CommandConnect, CommandReleaseStream, CommandFCPublish, CommandPublish:
	default:
		h.logger.Debug("passing command through", zap.String("command", head.Name))
		return payload, false, nil
	}

	var cmd Command
	if err := cmd.UnmarshalRTMPMessage(payload); err != nil {
		return nil, false, err
	}
	if err := h.rewrite(&cmd); err != nil {
		return nil, false, err
	}

	out, err := cmd.MarshalRTMPMessage()
	if err != nil {
		return nil, false, err
	}
	h.logger.Info("rewrote command",
		zap.String("command", cmd.Name),
		zap.Float64("transactionId", cmd.TransactionID),
		zap.Int("originalBytes", len(payload)),
		zap.Int("rewrittenBytes", len(out)))
	return out, cmd.Name == CommandPublish, nil
}

func (h *Hijacker) rewrite(cmd *Command) error {
	if cmd.Name == CommandConnect {
		return h.rewriteConnect(cmd)
	}
	// releaseStream, FCPublish and publish carry a null command object before the stream name.
	i := firstValueArg(cmd.Args)
	if i < 0 {
		return errors.Wrapf(ErrMissingArgument, "%s stream name", cmd.Name)
	}
	h.logger.Debug("replacing stream name", zap.String("command", cmd.Name), zap.Any("original", cmd.Args[i]))
	cmd.Args[i] = h.streamName
	return nil
}

func (h *Hijacker) rewriteConnect(cmd *Command) error {
	if len(cmd.Args) == 0 {
		return errors.Wrap(ErrMissingArgument, "connect command object")
	}
	switch v := cmd.Args[0].(type) {
	case amf0.Object:
		cmd.Args[0] = h.rewriteConnectObject(v)
	case amf0.ECMAArray:
		v.Properties = h.rewriteConnectObject(v.Properties)
		if uint32(len(v.Properties)) > v.Count {
			v.Count = uint32(len(v.Properties))
		}
		cmd.Args[0] = v
	default:
		return errors.Wrapf(ErrUnexpectedValueKind, "connect command object is %T", cmd.Args[0])
	}
	return nil
}

func (h *Hijacker) rewriteConnectObject(obj amf0.Object) amf0.Object {
	if app, ok := obj.Get("app"); ok {
		h.logger.Debug("replacing connect app", zap.Any("original", app))
	}
	obj.Set("app", h.appName)
	obj.Set("swfUrl", h.playURL)
	obj.Set("tcUrl", h.playURL)
	return obj
}

// firstValueArg returns the index of the first argument that is neither null nor undefined, or -1.
func firstValueArg(args []interface{}) int {
	for i, arg := range args {
		switch arg.(type) {
		case nil, amf0.Undefined:
			continue
		}
		return i
	}
	return -1
}
