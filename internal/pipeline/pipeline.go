package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Middleware processes a place and returns the (possibly modified) place.
// Return nil to drop the place from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a place. Return nil to drop it.
	Process(place *types.Place) (*types.Place, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates an empty Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the normalisation chain applied to every parsed place.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(&CollapseWhitespaceMiddleware{})
	p.Use(&RatingNormalizeMiddleware{})
	p.Use(&DefaultsMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the place through all middleware in order.
func (p *Pipeline) Process(place *types.Place) (*types.Place, error) {
	current := place

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Place: current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("place dropped", "stage", mw.Name(), "url", place.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
