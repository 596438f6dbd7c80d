// Package camundatest provides an in-memory job client for exercising worker handlers.
package camundatest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// Command is one job command as it reached the gateway.
type Command struct {
	Name         string
	JobKey       int64
	Retries      int32
	ErrorCode    string
	ErrorMessage string
	Variables    string
	// CtxErr is the error of the context the command was sent on.
	CtxErr error
}

// DecodeVariables unmarshals the command variables into a map.
func (c Command) DecodeVariables() map[string]interface{} {
	vars := map[string]interface{}{}
	if c.Variables != "" {
		_ = json.Unmarshal([]byte(c.Variables), &vars)
	}
	return vars
}

// Gateway records complete, fail and throw requests. Any other RPC panics.
type Gateway struct {
	pb.GatewayClient

	mu       sync.Mutex
	commands []Command
}

func (g *Gateway) record(ctx context.Context, cmd Command) error {
	cmd.CtxErr = ctx.Err()
	g.mu.Lock()
	g.commands = append(g.commands, cmd)
	g.mu.Unlock()
	return cmd.CtxErr
}

func (g *Gateway) CompleteJob(ctx context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	if err := g.record(ctx, Command{Name: "complete", JobKey: in.GetJobKey(), Variables: in.GetVariables()}); err != nil {
		return nil, err
	}
	return &pb.CompleteJobResponse{}, nil
}

func (g *Gateway) FailJob(ctx context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	err := g.record(ctx, Command{
		Name:         "fail",
		JobKey:       in.GetJobKey(),
		Retries:      in.GetRetries(),
		ErrorMessage: in.GetErrorMessage(),
		Variables:    in.GetVariables(),
	})
	if err != nil {
		return nil, err
	}
	return &pb.FailJobResponse{}, nil
}

func (g *Gateway) ThrowError(ctx context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	err := g.record(ctx, Command{
		Name:         "throw",
		JobKey:       in.GetJobKey(),
		ErrorCode:    in.GetErrorCode(),
		ErrorMessage: in.GetErrorMessage(),
		Variables:    in.GetVariables(),
	})
	if err != nil {
		return nil, err
	}
	return &pb.ThrowErrorResponse{}, nil
}

// Commands returns a copy of everything received so far.
func (g *Gateway) Commands() []Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Command(nil), g.commands...)
}

// JobClient implements worker.JobClient on top of a Gateway.
type JobClient struct {
	Gateway *Gateway
}

func NewJobClient() *JobClient {
	return &JobClient{Gateway: &Gateway{}}
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.Gateway, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.Gateway, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.Gateway, noRetry)
}

// Commands is a shorthand for c.Gateway.Commands.
func (c *JobClient) Commands() []Command {
	return c.Gateway.Commands()
}
