package services

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// promptInstructions asks the provider for one conversation starter per
// returned candidate.
const promptInstructions = `Give me exactly one fun, conversation starter.

Some good examples are:
Would you rather have the neck of a giraffe or the body of a hippo?
If you could eat one food for the rest of your life, what would it be?
If you could have any superpower, what would it be?

Provide the conversation starter, and nothing else.`

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	Count       int
	MaxTokens   int
	Temperature float64
}

// Generator produces candidate conversation starters. It may return
// zero candidates; errors propagate to the caller.
type Generator interface {
	Generate(ctx context.Context, instructions string, opts GenerateOptions) ([]string, error)
}

// promptCache is one requester's supply: a stack of prompts they have
// not seen and the set of prompts already handed to them. The mutex
// covers the whole pop/refill sequence so the same unseen prompt is
// never handed out twice.
type promptCache struct {
	mu     sync.Mutex
	unseen []string
	seen   map[string]struct{}
}

// PromptService supplies conversation starters, one per call, keeping a
// per-requester cache of generated prompts. Fresh prompts come from the
// generator; when the supply runs dry and a refill yields nothing new,
// the requester gets a repeat from their own history rather than an
// error.
type PromptService struct {
	gen  Generator
	opts GenerateOptions

	seedOnce sync.Once

	mu      sync.Mutex
	starter []string
	caches  map[string]*promptCache
}

// NewPromptService creates a prompt service and kicks off the fetch
// that fills the shared starter pool. The pool is filled at most once;
// a requester arriving before the background fetch ran triggers it
// inline instead.
func NewPromptService(gen Generator, opts GenerateOptions) *PromptService {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	s := &PromptService{
		gen:    gen,
		opts:   opts,
		caches: make(map[string]*promptCache),
	}
	go s.seedOnce.Do(s.fetchStarter)
	return s
}

// fetchStarter fills the shared starter pool. A failed fetch leaves the
// pool empty; first contacts then start from a synchronous refill.
func (s *PromptService) fetchStarter() {
	batch, err := s.gen.Generate(context.Background(), promptInstructions, s.opts)
	if err != nil {
		log.Error().Err(err).Msg("Starter prompt fetch failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, p := range batch {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		s.starter = append(s.starter, p)
	}
}

// GetPrompt returns a conversation starter for the requester. A first
// contact is seeded from the starter pool. An empty supply triggers a
// synchronous refill; if that still yields nothing new, a previously
// returned prompt is re-surfaced. A successful pop that leaves the
// supply below half a batch triggers a refill in the background.
func (s *PromptService) GetPrompt(ctx context.Context, requester string) (string, error) {
	c := s.cacheFor(requester)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.unseen) == 0 {
		if err := s.refill(ctx, c); err != nil {
			return "", err
		}
	}

	if len(c.unseen) == 0 {
		// Degraded mode: nothing novel is available, repeat one of the
		// requester's previous prompts.
		if len(c.seen) == 0 {
			return "", fmt.Errorf("no prompts available")
		}
		previous := make([]string, 0, len(c.seen))
		for p := range c.seen {
			previous = append(previous, p)
		}
		return previous[rand.Intn(len(previous))], nil
	}

	prompt := c.unseen[len(c.unseen)-1]
	c.unseen = c.unseen[:len(c.unseen)-1]
	c.seen[prompt] = struct{}{}

	if len(c.unseen) < s.opts.Count/2 {
		// Running low; top up without making the caller wait.
		go func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if err := s.refill(context.Background(), c); err != nil {
				log.Error().Err(err).Str("requester", requester).Msg("Background prompt refill failed")
			}
		}()
	}

	return prompt, nil
}

// cacheFor returns the requester's cache, seeding a new one from the
// starter pool on first contact.
func (s *PromptService) cacheFor(requester string) *promptCache {
	s.seedOnce.Do(s.fetchStarter)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[requester]
	if !ok {
		c = &promptCache{
			unseen: append([]string(nil), s.starter...),
			seen:   make(map[string]struct{}),
		}
		s.caches[requester] = c
	}
	return c
}

// refill fetches a batch and pushes the candidates the requester has
// not seen yet. Caller must hold c.mu.
func (s *PromptService) refill(ctx context.Context, c *promptCache) error {
	batch, err := s.gen.Generate(ctx, promptInstructions, s.opts)
	if err != nil {
		return err
	}

	for _, candidate := range batch {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, used := c.seen[candidate]; used {
			continue
		}
		if slices.Contains(c.unseen, candidate) {
			continue
		}
		c.unseen = append(c.unseen, candidate)
	}
	return nil
}
