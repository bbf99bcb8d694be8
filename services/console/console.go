// Package console is a line-oriented command shell over the bus. Words are
// split shell-style so light names with spaces can be quoted:
//
//	set "Bedroom Light" power on
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/errcode"
	"devicelights-go/services/lights"
	"devicelights-go/types"
)

const usage = `commands:
  lights                         list lights and state
  get <light>                    show one light
  set <light> <param> <value>    param: power|brightness|hue|saturation
  toggle <light>                 flip power
  trigger <event>                ERROR|OTA|LOAD|MOVE
  help
`

type Console struct {
	conn    *bus.Connection
	out     io.Writer
	log     zerolog.Logger
	timeout time.Duration
}

func New(conn *bus.Connection, out io.Writer, log zerolog.Logger) *Console {
	return &Console{conn: conn, out: out, log: log, timeout: time.Second}
}

// Serve executes one command per input line until EOF or ctx is done.
func (c *Console) Serve(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	c.prompt()
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.Exec(ctx, sc.Text()); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		c.prompt()
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func (c *Console) prompt() { io.WriteString(c.out, "> ") }

// Exec runs a single command line and writes its output.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "console", err)
	}
	if len(args) == 0 {
		return nil
	}
	c.log.Debug().Strs("args", args).Msg("console command")

	switch cmd, rest := strings.ToLower(args[0]), args[1:]; cmd {
	case "help", "?":
		io.WriteString(c.out, usage)
		return nil
	case "lights", "ls":
		return c.list(ctx)
	case "get":
		if len(rest) != 1 {
			return usageErr("get <light>")
		}
		return c.get(ctx, rest[0])
	case "set":
		if len(rest) != 3 {
			return usageErr("set <light> <param> <value>")
		}
		return c.set(ctx, rest[0], types.Param(strings.ToLower(rest[1])), rest[2])
	case "toggle":
		if len(rest) != 1 {
			return usageErr("toggle <light>")
		}
		return c.set(ctx, rest[0], types.ParamPower, "toggle")
	case "trigger":
		if len(rest) != 1 {
			return usageErr("trigger <event>")
		}
		return c.expectOK(c.request(ctx, lights.TopicTrigger(), types.Trigger{Event: strings.ToUpper(rest[0])}))
	default:
		return errcode.New(errcode.InvalidTopic, "console", "unknown command "+cmd+", try help")
	}
}

func (c *Console) list(ctx context.Context) error {
	p, err := c.request(ctx, lights.TopicList(), nil)
	if err != nil {
		return err
	}
	ls, ok := p.([]types.LightInfo)
	if !ok {
		return errcode.InvalidPayload
	}
	for _, li := range ls {
		c.printInfo(li)
	}
	return nil
}

func (c *Console) get(ctx context.Context, name string) error {
	p, err := c.request(ctx, lights.TopicGet(name), nil)
	if err != nil {
		return err
	}
	if e, ok := p.(types.ErrorReply); ok {
		return errcode.Code(e.Error)
	}
	li, ok := p.(types.LightInfo)
	if !ok {
		return errcode.InvalidPayload
	}
	c.printInfo(li)
	return nil
}

func (c *Console) set(ctx context.Context, name string, p types.Param, v string) error {
	return c.expectOK(c.request(ctx, lights.TopicCtrl(name, p), v))
}

func (c *Console) printInfo(li types.LightInfo) {
	st := li.State
	power := "off"
	if st.Power {
		power = "on"
	}
	switch li.Kind {
	case types.LightSwitch:
		fmt.Fprintf(c.out, "%-16s %-7s power=%s\n", li.Name, li.Kind, power)
	case types.LightStaged:
		fmt.Fprintf(c.out, "%-16s %-7s power=%s brightness=%d\n", li.Name, li.Kind, power, st.Brightness)
	default:
		fmt.Fprintf(c.out, "%-16s %-7s power=%s brightness=%d hue=%d saturation=%d\n",
			li.Name, li.Kind, power, st.Brightness, st.Hue, st.Saturation)
	}
}

func (c *Console) request(ctx context.Context, topic bus.Topic, payload any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(topic, payload, false))
	if err != nil {
		return nil, errcode.Wrap(errcode.Timeout, "console", err)
	}
	return m.Payload, nil
}

func (c *Console) expectOK(p any, err error) error {
	if err != nil {
		return err
	}
	switch r := p.(type) {
	case types.OKReply:
		io.WriteString(c.out, "ok\n")
		return nil
	case types.ErrorReply:
		return errcode.Code(r.Error)
	default:
		return errcode.InvalidPayload
	}
}

func usageErr(u string) error { return errcode.New(errcode.InvalidParams, "console", "usage: "+u) }
