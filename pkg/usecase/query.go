package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/gerri/pkg/domain/interfaces"
	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/utils/logging"
)

// DefaultTopK is the retrieval depth when the caller does not specify one
const DefaultTopK = 5

//go:embed prompt/chat_system.md
var chatPromptTmpl string

var chatPrompt = template.Must(template.New("chat_system").Parse(chatPromptTmpl))

// StreamFunc receives answer fragments as they arrive from the generation
// backend, in backend order. Returning an error stops consumption and the
// turn is not committed to history.
type StreamFunc func(fragment string) error

// Citation maps an inline [n] marker back to its source record. Rank is
// the 1-based retrieval rank used in the prompt.
type Citation struct {
	Rank   int
	Record model.Record
}

// QueryResult is the outcome of one query. On a generation failure Answer
// holds whatever text was already delivered to the caller.
type QueryResult struct {
	Question  string
	Answer    string
	Citations []Citation
}

// QueryUseCase drives one retrieval-augmented query end to end: retrieve
// context, assemble the prompt, stream the answer, and commit the finished
// turn to session memory. Queries are independent; no shared lock
// serializes them.
type QueryUseCase struct {
	index        interfaces.Index
	sessions     interfaces.SessionRepository
	llmClient    gollem.LLMClient
	topK         int
	instructions string
}

// NewQueryUseCase creates a new QueryUseCase. The index may be nil;
// queries then run without retrieved context.
func NewQueryUseCase(idx interfaces.Index, sessions interfaces.SessionRepository, llmClient gollem.LLMClient, opts ...Option) *QueryUseCase {
	o := &options{topK: DefaultTopK}
	for _, opt := range opts {
		opt(o)
	}
	return &QueryUseCase{
		index:        idx,
		sessions:     sessions,
		llmClient:    llmClient,
		topK:         o.topK,
		instructions: o.instructions,
	}
}

// RunQuery answers one question for a session. Fragments are forwarded to
// stream as they arrive; the completed turn is appended to the session's
// history only after the backend signals a clean end of stream. Retrieval
// failures degrade to an empty context; generation failures are fatal to
// this query only and leave history untouched.
func (uc *QueryUseCase) RunQuery(ctx context.Context, sessionID types.SessionID, question string, topK int, stream StreamFunc) (*QueryResult, error) {
	logger := logging.From(ctx)

	if strings.TrimSpace(question) == "" {
		return nil, goerr.New("question is required", goerr.V(types.SessionIDKey, sessionID))
	}
	if topK <= 0 {
		topK = uc.topK
	}

	// Retrieval is best-effort: a search failure must not abort the query.
	var records []model.Record
	if uc.index != nil {
		found, err := uc.index.Search(ctx, question, topK)
		if err != nil {
			logger.Warn("retrieval failed, continuing without context",
				"error", err.Error(),
				"top_k", topK,
			)
		} else {
			records = found
		}
	}

	history, err := uc.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load session history",
			goerr.V(types.SessionIDKey, sessionID),
		)
	}

	prompt, err := uc.buildPrompt(history, records, question)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build prompt")
	}

	session, err := uc.llmClient.NewSession(ctx)
	if err != nil {
		return nil, goerr.Wrap(types.ErrGeneration, "failed to create generation session",
			goerr.V("error", err.Error()),
		)
	}

	ch, err := session.GenerateStream(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(types.ErrGeneration, "failed to start generation stream",
			goerr.V("error", err.Error()),
		)
	}

	var answer strings.Builder
	result := func() *QueryResult {
		return &QueryResult{Question: question, Answer: answer.String()}
	}

receive:
	for {
		select {
		case <-ctx.Done():
			// Caller went away: stop consuming and do not commit the turn.
			return result(), goerr.Wrap(ctx.Err(), "query cancelled during generation",
				goerr.V(types.SessionIDKey, sessionID),
			)

		case resp, ok := <-ch:
			if !ok {
				break receive
			}
			if resp == nil {
				continue
			}
			if resp.Error != nil {
				return result(), goerr.Wrap(types.ErrGeneration, "generation stream failed",
					goerr.V(types.SessionIDKey, sessionID),
					goerr.V("error", resp.Error.Error()),
					goerr.V("partial_len", answer.Len()),
				)
			}
			for _, fragment := range resp.Texts {
				if fragment == "" {
					continue
				}
				if stream != nil {
					if err := stream(fragment); err != nil {
						return result(), goerr.Wrap(err, "stream consumer aborted",
							goerr.V(types.SessionIDKey, sessionID),
						)
					}
				}
				answer.WriteString(fragment)
			}
		}
	}

	// Clean end of stream: commit the turn before reporting success.
	turn := model.ConversationTurn{Question: question, Answer: answer.String()}
	if err := uc.sessions.Append(ctx, sessionID, turn); err != nil {
		return result(), goerr.Wrap(err, "failed to commit turn to session history",
			goerr.V(types.SessionIDKey, sessionID),
		)
	}

	res := result()
	for i, rec := range records {
		res.Citations = append(res.Citations, Citation{Rank: i + 1, Record: rec})
	}
	return res, nil
}

type promptTurn struct {
	Question string
	Answer   string
}

type promptContext struct {
	Rank int
	Body string
}

type chatPromptData struct {
	Instructions string
	History      []promptTurn
	Context      []promptContext
	Question     string
}

// buildPrompt assembles the generation prompt deterministically: fixed
// instruction text, history oldest first, retrieved context in rank order
// with 1-based citation tags, then the current question.
func (uc *QueryUseCase) buildPrompt(history []model.ConversationTurn, records []model.Record, question string) (string, error) {
	data := chatPromptData{
		Instructions: uc.instructions,
		Question:     question,
	}

	for _, turn := range history {
		data.History = append(data.History, promptTurn{
			Question: turn.Question,
			Answer:   turn.Answer,
		})
	}

	for i, rec := range records {
		body, err := rec.Serialize()
		if err != nil {
			return "", goerr.Wrap(err, "failed to serialize context record", goerr.V("rank", i+1))
		}
		data.Context = append(data.Context, promptContext{Rank: i + 1, Body: body})
	}

	var buf bytes.Buffer
	if err := chatPrompt.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute chat prompt template")
	}
	return buf.String(), nil
}
