// Package contracttest provides a minimal contract for exercising the
// orchestration code in tests.
package contracttest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/models"
)

// Action is the blob payload understood by Counter.
type Action struct {
	// Fail makes Execute return Fail as its error after bumping the counter.
	Fail string `json:"fail,omitempty"`
}

// Counter counts successful executions per caller.
type Counter struct {
	Calls map[models.Identity]int `json:"calls"`
	// SerializeErr is returned by SerializeState when set.
	SerializeErr error `json:"-"`
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{Calls: make(map[models.Identity]int)}
}

// Blob builds a blob for the counter registered under name.
func Blob(name models.ContractName, action Action) models.Blob {
	blob, err := contract.EncodeBlob(name, action)
	if err != nil {
		panic(err)
	}
	return blob
}

func (c *Counter) Execute(calldata *models.Calldata) (string, error) {
	action, ctx, err := contract.ParseAction[Action](calldata)
	if err != nil {
		return "", err
	}
	c.Calls[ctx.Caller]++
	if action.Fail != "" {
		return "", errors.New(action.Fail)
	}
	return fmt.Sprintf("%s called %d times", ctx.Caller, c.Calls[ctx.Caller]), nil
}

func (c *Counter) SerializeState() ([]byte, error) {
	if c.SerializeErr != nil {
		return nil, c.SerializeErr
	}
	return json.Marshal(c)
}

func (c *Counter) Clone() contract.Contract {
	out := &Counter{Calls: make(map[models.Identity]int, len(c.Calls)), SerializeErr: c.SerializeErr}
	for k, v := range c.Calls {
		out.Calls[k] = v
	}
	return out
}
