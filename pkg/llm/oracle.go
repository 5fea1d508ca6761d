package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/retry"
)

// DefaultSystemMessage is the system prompt for every structured ask.
const DefaultSystemMessage = "You are a careful data engineer. " +
	"Answer with a single JSON object using exactly the keys you were asked for. " +
	"Do not add prose, explanations, or markdown around the JSON."

// Oracle layers transport retries, circuit breaking, and structured-output
// parsing over a raw OracleClient. One Oracle is safe for concurrent use.
type Oracle struct {
	client   OracleClient
	retryCfg *retry.Config
	breaker  *CircuitBreaker
	logger   *zap.Logger
}

// NewOracle creates an Oracle. A nil retryCfg uses retry.DefaultConfig;
// a nil breaker disables circuit breaking.
func NewOracle(client OracleClient, retryCfg *retry.Config, breaker *CircuitBreaker, logger *zap.Logger) *Oracle {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &Oracle{
		client:   client,
		retryCfg: retryCfg,
		breaker:  breaker,
		logger:   logger.Named("oracle"),
	}
}

// Client returns the underlying client.
func (o *Oracle) Client() OracleClient {
	return o.client
}

// Complete runs one completion with transport retries and circuit
// breaking. Transient transport failures (rate limits, 5xx, timeouts) are
// retried internally; everything else surfaces immediately.
func (o *Oracle) Complete(ctx context.Context, prompt string, systemMessage string) (string, error) {
	if systemMessage == "" {
		systemMessage = DefaultSystemMessage
	}

	return retry.DoWithResult(ctx, o.retryCfg, func() (string, error) {
		if o.breaker != nil {
			if err := o.breaker.Allow(); err != nil {
				return "", err
			}
		}

		response, err := o.client.Complete(ctx, prompt, systemMessage)
		if o.breaker != nil {
			if err != nil {
				o.breaker.RecordFailure()
			} else {
				o.breaker.RecordSuccess()
			}
		}
		return response, err
	})
}

// Ask runs one completion and parses the response into T. Transport
// failures are retried by Complete; a response that does not match the
// requested shape is returned as a non-retryable shape error.
func Ask[T any](ctx context.Context, o *Oracle, prompt string, systemMessage string) (T, error) {
	var zero T

	response, err := o.Complete(ctx, prompt, systemMessage)
	if err != nil {
		return zero, err
	}

	parsed, err := ParseResponse[T](response)
	if err != nil {
		o.logger.Warn("oracle response failed shape parse",
			zap.String("model", o.client.GetModel()),
			zap.Int("response_len", len(response)),
			zap.Error(err))
		return zero, err
	}

	return parsed, nil
}
