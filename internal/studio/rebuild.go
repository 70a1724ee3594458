package studio

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

// RefreshPrompt runs a rebuild now instead of waiting for the debounce
// window. A pending debounced rebuild is dropped.
func (s *Service) RefreshPrompt(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.debouncer.Cancel(id)
	err = s.rebuild(ctx, sess)
	return s.snapshot(sess), err
}

// PromptPending reports whether a debounced rebuild is waiting to run.
func (s *Service) PromptPending(id string) bool {
	return s.debouncer.Pending(id)
}

func (s *Service) scheduleRebuild(sess *session) {
	s.debouncer.Trigger(sess.id, func() {
		ctx, cancel := s.callContext()
		defer cancel()
		if err := s.rebuild(ctx, sess); err != nil {
			s.logger.Warn("prompt rebuild failed", "session", sess.id, "err", err)
		}
	})
}

type rebuildInput struct {
	token       uint64
	in          prompt.Input
	product     media.Image
	style       media.Image
	needProduct bool
	needStyle   bool
}

// rebuild describes the images it still lacks descriptions for, builds the
// prompt and commits it only if no newer change happened meanwhile.
func (s *Service) rebuild(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	sess.promptToken++
	ri := rebuildInput{
		token: sess.promptToken,
		in: prompt.Input{
			Config:             sess.config,
			Creative:           sess.creative,
			ProductDescription: sess.productDesc,
			Template:           sess.template,
			Negative:           sess.bundle.Negative,
		},
		product: sess.product,
		style:   sess.style,
	}
	if !sess.style.IsZero() && sess.styleDescFor == sess.config.StyleEmphasis {
		ri.in.StyleDescription = sess.styleDesc
	}
	ri.needProduct = !ri.product.IsZero() && ri.in.ProductDescription == ""
	ri.needStyle = !ri.style.IsZero() && ri.in.StyleDescription == ""

	// Nothing can be built without a template, a style or creative mode.
	if !ri.in.Creative.Enabled && ri.in.Template == "" && ri.style.IsZero() {
		sess.bundle.Positive = ""
		sess.promptLoading = false
		sess.updatedAt = s.now()
		sess.mu.Unlock()
		s.notify(sess, EventPrompt)
		return nil
	}
	sess.promptLoading = true
	sess.mu.Unlock()
	s.notify(sess, EventState)

	productDesc, styleDesc, err := s.describe(ctx, ri)
	var bundle prompt.Bundle
	if err == nil {
		ri.in.ProductDescription = productDesc
		ri.in.StyleDescription = styleDesc
		bundle, err = prompt.Build(ctx, ri.in, s.model)
	}

	sess.mu.Lock()
	if sess.promptToken != ri.token {
		sess.mu.Unlock()
		s.logger.Debug("stale prompt discarded", "session", sess.id, "token", ri.token)
		return nil
	}
	sess.promptLoading = false
	sess.updatedAt = s.now()
	if ri.needProduct && productDesc != "" {
		sess.productDesc = productDesc
	}
	if ri.needStyle && styleDesc != "" {
		sess.styleDesc = styleDesc
		sess.styleDescFor = ri.in.Config.StyleEmphasis
	}
	if err != nil {
		sess.bundle.Positive = ""
		sess.lastErr = opErr(OpPrompt, err)
		sess.mu.Unlock()
		s.notify(sess, EventError)
		return opErr(OpPrompt, err)
	}
	sess.bundle.Positive = bundle.Positive
	var promptErr *OpError
	if errors.As(sess.lastErr, &promptErr) && promptErr.Op == OpPrompt {
		sess.lastErr = nil
	}
	sess.mu.Unlock()

	s.notify(sess, EventPrompt)
	return nil
}

func (s *Service) describe(ctx context.Context, ri rebuildInput) (string, string, error) {
	productDesc := ri.in.ProductDescription
	styleDesc := ri.in.StyleDescription
	if !ri.needProduct && !ri.needStyle {
		return productDesc, styleDesc, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if ri.needProduct {
		g.Go(func() error {
			out, err := s.model.DescribeComposition(gctx, ri.product)
			productDesc = out
			return err
		})
	}
	if ri.needStyle {
		g.Go(func() error {
			out, err := s.model.DescribeStyle(gctx, ri.style, ri.in.Config.StyleEmphasis)
			styleDesc = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return productDesc, styleDesc, nil
}

func (s *Service) fetchTemplate(sess *session) {
	sess.mu.Lock()
	sess.templateToken++
	token := sess.templateToken
	sess.busy[OpTemplate] = true
	sess.promptLoading = true
	sess.mu.Unlock()

	s.goAsync(func() {
		ctx, cancel := s.callContext()
		defer cancel()

		tpl, err := s.model.AdTemplate(ctx)

		sess.mu.Lock()
		if sess.templateToken != token {
			sess.mu.Unlock()
			return
		}
		delete(sess.busy, OpTemplate)
		sess.promptLoading = false
		sess.updatedAt = s.now()
		if err != nil {
			sess.lastErr = opErr(OpTemplate, err)
			sess.mu.Unlock()
			s.logger.Warn("template fetch failed", "session", sess.id, "err", err)
			s.notify(sess, EventError)
			return
		}
		sess.template = tpl
		sess.bundle.Positive = tpl
		sess.promptToken++
		// Scheduled before unlocking so the session never looks settled
		// between the prefill and its rebuild.
		s.scheduleRebuild(sess)
		sess.mu.Unlock()

		s.notify(sess, EventTemplate)
	})
}
