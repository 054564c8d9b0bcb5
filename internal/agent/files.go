package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/tools"
)

const (
	fileAnalystPrompt = "You are Arion, a blockchain expert. Analyze files and give SHORT insights with emojis. NO markdown symbols like ** or ##. Just use plain text."
	auditorPrompt     = "You are Arion, an expert Solidity auditor. Provide SHORT security analysis with emojis. NO markdown symbols like ** or ##."

	auditMaxTokens = 800
)

// analyzeFile handles an uploaded attachment. Solidity sources always get
// the static report; model commentary is layered on top when available.
func (a *Agent) analyzeFile(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	file := req.File

	switch tools.ClassifyFile(file.Name, file.Type, file.Data) {
	case tools.FileKindSolidity:
		return a.analyzeSolidity(ctx, file)

	case tools.FileKindImage:
		return a.describeImage(ctx, file.Data, req.Message)

	case tools.FileKindBlockchainText:
		prompt := req.Message
		if prompt == "" {
			prompt = "Analyze this file"
		}
		content := fmt.Sprintf("File: %s\nContent:\n%s\n\nUser's question: %s", file.Name, file.Data, prompt)

		reply, err := a.completeSimple(ctx, fileAnalystPrompt, content, a.config.MaxTokens, a.config.Temperature)
		if err != nil {
			a.logger.Error().Err(err).Msg("file analysis model call failed")
			return a.render("⚠️ Error analyzing file: " + err.Error()), nil
		}
		return a.render(reply), nil

	default:
		return a.render(tools.UnrelatedFileMessage(file.Name)), nil
	}
}

// analyzeSolidity runs the static scan and appends the model's audit pass
// when the model is reachable. The static report stands alone on model
// failure.
func (a *Agent) analyzeSolidity(ctx context.Context, file *models.FileAttachment) (*models.ChatResponse, error) {
	report := tools.AnalyzeSolidity(file.Name, file.Data).Render()

	audit, err := a.completeSimple(ctx, auditorPrompt,
		"Analyze this Solidity contract briefly:\n\n"+file.Data,
		auditMaxTokens, a.config.AuditTemperature)
	if err != nil {
		a.logger.Warn().Err(err).Msg("solidity audit model call failed, serving static report only")
		return a.render(report), nil
	}

	return a.render(report + "\n\nAI Security Analysis:\n" + audit), nil
}

// analyzeImage handles a standalone image attachment from the chat request.
func (a *Agent) analyzeImage(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	return a.describeImage(ctx, req.Image, req.Message)
}

// describeImage sends the image to the model's vision input.
func (a *Agent) describeImage(ctx context.Context, imageData, prompt string) (*models.ChatResponse, error) {
	if a.llm == nil {
		return a.render(modelDownReply), nil
	}
	if prompt == "" {
		prompt = "Analyze this blockchain/crypto-related image"
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fileAnalystPrompt),
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.ImageURLPart(imageData),
			},
		},
	}

	resp, err := a.llm.GenerateContent(ctx, msgs,
		llms.WithMaxTokens(a.config.MaxTokens),
		llms.WithTemperature(a.config.Temperature),
	)
	if err != nil {
		a.logger.Error().Err(err).Msg("image analysis model call failed")
		return a.render("⚠️ Error analyzing image: " + err.Error()), nil
	}
	if len(resp.Choices) == 0 {
		return a.render(modelDownReply), nil
	}

	return a.render(resp.Choices[0].Content), nil
}

// completeSimple is a one-shot system+user exchange.
func (a *Agent) completeSimple(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("no language model configured")
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := a.llm.GenerateContent(ctx, msgs,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
