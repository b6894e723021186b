// Package agent runs the roster assistant: a chat model driven through an
// OpenAI-compatible API (Ollama by default) that answers by calling the
// student tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// ErrMaxSteps is returned when the model keeps calling tools past the step limit.
var ErrMaxSteps = errors.New("agent exceeded the maximum number of steps")

const SystemPrompt = `Role: assistant that manages a school's student roster.

Use the available tools to:
- find students by given name or family name (case and accents do not matter);
- add new students, asking for given name, family name and course when any is missing;
- list every student.

Before adding a student, look them up; if someone with the same name already
exists, tell the user and ask for confirmation.
If a tool reports an error, explain it clearly.

Answer briefly and clearly, in the user's language, using bullet lists for
students. Never change data unless the user asks for it explicitly.`

// Options configure the chat model connection
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxSteps    int
}

// Result is the agent's reply, shaped as {"data":{"result": ...}}.
type Result struct {
	Data ResultData `json:"data"`
}

type ResultData struct {
	Result    string   `json:"result"`
	ToolCalls []string `json:"toolCalls,omitempty"`
}

// Agent answers prompts by looping model turns and tool calls.
type Agent struct {
	client    openai.Client
	opts      Options
	tools     map[string]*Tool
	toolOrder []string
	validator argValidator
	logger    *zap.Logger
}

// New creates an agent bound to tools.
func New(opts Options, tools []*Tool, logger *zap.Logger) *Agent {
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
		option.WithAPIKey(opts.APIKey),
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}
	a := &Agent{
		client: openai.NewClient(clientOpts...),
		opts:   opts,
		tools:  make(map[string]*Tool, len(tools)),
		logger: logger,
	}
	for _, t := range tools {
		a.tools[t.Name] = t
		a.toolOrder = append(a.toolOrder, t.Name)
	}
	return a
}

// Run sends prompt to the model and executes the tool calls it asks for
// until it produces a final answer.
func (a *Agent) Run(ctx context.Context, prompt string) (*Result, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt),
		openai.UserMessage(prompt),
	}
	var called []string

	for step := 0; step < a.opts.MaxSteps; step++ {
		resp, err := a.client.Chat.Completions.New(ctx, a.params(messages))
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("chat completion returned no choices")
		}
		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			a.logger.Debug("Agent finished", zap.Int("steps", step+1), zap.Strings("tools", called))
			return &Result{Data: ResultData{Result: msg.Content, ToolCalls: called}}, nil
		}

		calls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			calls[i] = openai.ChatCompletionMessageToolCallParam{
				ID:   tc.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: calls,
			},
		})

		for _, tc := range msg.ToolCalls {
			output := a.callTool(tc.Function.Name, tc.Function.Arguments)
			called = append(called, tc.Function.Name)
			messages = append(messages, openai.ToolMessage(output, tc.ID))
		}
	}
	return nil, ErrMaxSteps
}

// callTool runs one tool call. Problems are reported back to the model as
// the tool output rather than aborting the conversation.
func (a *Agent) callTool(name, rawArgs string) string {
	tool, ok := a.tools[name]
	if !ok {
		a.logger.Warn("Model called unknown tool", zap.String("tool", name))
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	if err := a.validator.validate(tool, rawArgs); err != nil {
		a.logger.Info("Rejected tool arguments", zap.String("tool", name), zap.String("args", rawArgs), zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	args, err := decodeArgs(rawArgs)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	a.logger.Debug("Calling tool", zap.String("tool", name), zap.String("args", rawArgs))
	return tool.Run(args)
}

func (a *Agent) params(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       a.opts.Model,
		Temperature: openai.Float(a.opts.Temperature),
	}
	tools := make([]openai.ChatCompletionToolParam, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		t := a.tools[name]
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	params.Tools = tools
	return params
}
