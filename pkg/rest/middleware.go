package rest

import "fmt"

// Next resumes the middleware chain. A nil argument advances the normal
// list; a non-nil error diverts into the error middleware list.
type Next func(err error)

// Middleware is one normal middleware step.
type Middleware func(req *Request, res *ResponseWriter, next Next)

// ErrorMiddleware handles an error travelling down the chain.
type ErrorMiddleware func(err error, req *Request, res *ResponseWriter, next Next)

// Chain executes the middleware lists as an explicit state machine: a cursor
// into each list, the current error, and the response's ended flag. A
// middleware that returns without calling next owns the response and stops
// the chain. A panic in any step is treated as next(err).
type Chain struct {
	normal   []Middleware
	errorMws []ErrorMiddleware
	req      *Request
	res      *ResponseWriter

	ni       int
	ei       int
	current  error
	finalRan bool
}

// NewChain builds a chain for one request.
func NewChain(normal []Middleware, errorMws []ErrorMiddleware, req *Request, res *ResponseWriter) *Chain {
	return &Chain{normal: normal, errorMws: errorMws, req: req, res: res}
}

// Run drives the pipeline: the normal list in order, then final. Errors
// (next(err), panics, or final's return value) transfer control to the error
// list; an error middleware calling next(nil) resumes the normal flow where
// it left off.
//
// Run returns nil when the chain completed or a middleware took ownership of
// the response. An unresolved error with no error middlewares configured is
// returned as-is for the caller to classify; once error middlewares had
// their chance and the list is exhausted, the error is wrapped as a
// KindMiddleware failure.
func (c *Chain) Run(final func() error) error {
	for {
		if c.current != nil {
			if c.ei >= len(c.errorMws) {
				if c.res.Ended() {
					return nil
				}
				if len(c.errorMws) == 0 {
					// no error middleware had refusal rights; the caller
					// classifies the error itself
					return c.current
				}
				return MiddlewareError(c.current)
			}
			mw := c.errorMws[c.ei]
			c.ei++
			err := c.current
			if stop := c.step(func(next Next) { mw(err, c.req, c.res, next) }); stop {
				return nil
			}
			continue
		}

		if c.ni < len(c.normal) {
			mw := c.normal[c.ni]
			c.ni++
			if stop := c.step(func(next Next) { mw(c.req, c.res, next) }); stop {
				return nil
			}
			continue
		}

		if !c.finalRan {
			c.finalRan = true
			if err := safeCall(final); err != nil {
				c.current = err
			}
			continue
		}

		return nil
	}
}

// step invokes one middleware, translating panics into chain errors and
// reporting ownership when next was never called.
func (c *Chain) step(invoke func(next Next)) (stop bool) {
	var called bool
	var nextErr error
	next := func(err error) {
		called = true
		nextErr = err
	}

	if panicErr := safeCall(func() error {
		invoke(next)
		return nil
	}); panicErr != nil {
		c.current = panicErr
		return false
	}

	if !called {
		return true
	}
	c.current = nextErr
	return false
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}
