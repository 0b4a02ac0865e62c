package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pario-ai/llmemo/pkg/client"
)

type askArgs struct {
	Question string `json:"question"`
	UseCache *bool  `json:"use_cache"`
}

type setModelArgs struct {
	Model string `json:"model"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"llmemo_ask":         askHandler(client.VariantNormal),
	"llmemo_ask_fast":    askHandler(client.VariantFast),
	"llmemo_status":      handleStatus,
	"llmemo_cache_stats": handleCacheStats,
	"llmemo_clear_cache": handleClearCache,
	"llmemo_optimize":    handleOptimize,
	"llmemo_set_model":   handleSetModel,
}

var askSchema = map[string]any{
	"type":     "object",
	"required": []string{"question"},
	"properties": map[string]any{
		"question": map[string]any{
			"type":        "string",
			"description": "The question to send to the model",
		},
		"use_cache": map[string]any{
			"type":        "boolean",
			"description": "Read and populate the response cache (default true)",
		},
	},
}

var noArgs = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

var allTools = []ToolDefinition{
	{
		Name:        "llmemo_ask",
		Description: "Ask the local model a question. Repeated questions are answered from the cache.",
		InputSchema: askSchema,
	},
	{
		Name:        "llmemo_ask_fast",
		Description: "Ask for a short, low-temperature answer with a tighter timeout.",
		InputSchema: askSchema,
	},
	{
		Name:        "llmemo_status",
		Description: "Show the active model, backend endpoint, cache size and backend reachability.",
		InputSchema: noArgs,
	},
	{
		Name:        "llmemo_cache_stats",
		Description: "Show response cache statistics (valid, expired, accesses, hit rate).",
		InputSchema: noArgs,
	},
	{
		Name:        "llmemo_clear_cache",
		Description: "Remove every cached response.",
		InputSchema: noArgs,
	},
	{
		Name:        "llmemo_optimize",
		Description: "Drop expired responses and, when over capacity, the least used ones.",
		InputSchema: noArgs,
	},
	{
		Name:        "llmemo_set_model",
		Description: "Switch the model used for later questions.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"model"},
			"properties": map[string]any{
				"model": map[string]any{
					"type":        "string",
					"description": "Model name as known to the backend, e.g. codellama:7b-code-q4_K_M",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func askHandler(v client.Variant) toolHandler {
	return func(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
		var args askArgs
		if len(rawArgs) > 0 {
			if err := json.Unmarshal(rawArgs, &args); err != nil {
				return errorResult("Invalid arguments: " + err.Error())
			}
		}
		if strings.TrimSpace(args.Question) == "" {
			return errorResult("question is required")
		}
		useCache := args.UseCache == nil || *args.UseCache

		a, err := s.svc.AskDetailed(ctx, v, args.Question, useCache)
		if err != nil {
			return errorResult("Error asking model: " + err.Error())
		}
		return textResult(formatAnswer(a))
	}
}

func handleStatus(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatStatus(s.svc.Status(ctx)))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatCacheStats(s.svc.CacheStats()))
}

func handleClearCache(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatCleared(s.svc.ClearCache()))
}

func handleOptimize(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatEvict(s.svc.Optimize()))
}

func handleSetModel(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args setModelArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	name := strings.TrimSpace(args.Model)
	if err := s.svc.SetModel(name); err != nil {
		return errorResult(err.Error())
	}
	return textResult("Model set to " + name)
}
