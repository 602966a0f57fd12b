// Package classicmock provides the ability to mock a classic protocol
// backend for tests.
package classicmock

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/classicpg/classicpg-go/classicproto"
)

type Step interface {
	Step(*classicproto.Backend) error
}

type Script struct {
	Steps []Step
}

func (s *Script) Run(backend *classicproto.Backend) error {
	for _, step := range s.Steps {
		err := step.Step(backend)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Script) Step(backend *classicproto.Backend) error {
	return s.Run(backend)
}

type expectStartupStep struct {
	want *classicproto.StartupMessage
	any  bool
}

func (e *expectStartupStep) Step(backend *classicproto.Backend) error {
	msg, err := backend.ReceiveStartup()
	if err != nil {
		return err
	}

	if e.any {
		return nil
	}

	if !reflect.DeepEqual(msg, e.want) {
		return fmt.Errorf("msg => %#v, e.want => %#v", msg, e.want)
	}

	return nil
}

// ExpectStartup reads the fixed startup packet and fails if it does not
// equal want.
func ExpectStartup(want *classicproto.StartupMessage) Step {
	return &expectStartupStep{want: want}
}

// ExpectAnyStartup reads the fixed startup packet and only validates its
// framing.
func ExpectAnyStartup() Step {
	return &expectStartupStep{any: true}
}

type expectMessageStep struct {
	want classicproto.FrontendMessage
	any  bool
}

func (e *expectMessageStep) Step(backend *classicproto.Backend) error {
	msg, err := backend.Receive()
	if err != nil {
		return err
	}

	if e.any && reflect.TypeOf(msg) == reflect.TypeOf(e.want) {
		return nil
	}

	if !reflect.DeepEqual(msg, e.want) {
		return fmt.Errorf("msg => %#v, e.want => %#v", msg, e.want)
	}

	return nil
}

func ExpectMessage(want classicproto.FrontendMessage) Step {
	return &expectMessageStep{want: want}
}

func ExpectAnyMessage(want classicproto.FrontendMessage) Step {
	return &expectMessageStep{want: want, any: true}
}

type sendMessageStep struct {
	msg classicproto.BackendMessage
}

func (e *sendMessageStep) Step(backend *classicproto.Backend) error {
	if err := backend.Send(e.msg); err != nil {
		return err
	}
	return backend.Flush()
}

func SendMessage(msg classicproto.BackendMessage) Step {
	return &sendMessageStep{msg: msg}
}

type waitForCloseStep struct{}

func (e *waitForCloseStep) Step(backend *classicproto.Backend) error {
	for {
		_, err := backend.Receive()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}

// WaitForClose reads and discards frontend messages until the client closes
// its end of the stream. The classic protocol has no terminate message.
func WaitForClose() Step {
	return &waitForCloseStep{}
}

// AcceptConnSteps are the steps a backend runs to accept a session: the
// startup packet followed by the probe query, acknowledged as an empty
// query.
func AcceptConnSteps() []Step {
	return []Step{
		ExpectAnyStartup(),
		ExpectMessage(&classicproto.Query{String: " "}),
		SendMessage(&classicproto.EmptyQueryResponse{}),
	}
}
