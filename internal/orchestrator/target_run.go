package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/logger"
)

var (
	// ErrUnresolvedTarget is returned for targets whose identity cannot be
	// resolved. Actions may return it too.
	ErrUnresolvedTarget = errors.New("target cannot be resolved")

	// ErrNoAction is returned when a TargetRun has no action.
	ErrNoAction = errors.New("target run has no action")
)

// Result payload keys of a target run.
const (
	ResultPosted       = "posted"
	ResultSkipped      = "skipped"
	ResultFailed       = "failed"
	ResultExternalRefs = "external_refs"
)

// Action performs the external side effect for one target and returns a
// reference to what it created, such as a permalink.
type Action func(ctx context.Context, target string) (externalRef string, err error)

// TargetRun describes one action to apply across a set of target channels
// for a piece of content owned by OwnerID.
type TargetRun struct {
	OwnerID         int64
	ContentIdentity string
	Targets         []string
	Action          Action
}

// targets returns the targets in the given order with duplicates removed.
func (r TargetRun) targets() []string {
	seen := make(map[string]struct{}, len(r.Targets))
	out := make([]string, 0, len(r.Targets))
	for _, target := range r.Targets {
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

type runOutcome struct {
	posted  []string
	skipped []string
	failed  map[string]string
	refs    map[string]string
}

func (o *runOutcome) resultData() domain.ResultData {
	return domain.ResultData{
		ResultPosted:       o.posted,
		ResultSkipped:      o.skipped,
		ResultFailed:       o.failed,
		ResultExternalRefs: o.refs,
	}
}

// RunTargets applies run.Action to every target not yet completed for
// (OwnerID, ContentIdentity). Each attempt is preceded by the pacer. A failed
// or panicking action only affects its own target. The returned error is
// non-nil only when the run itself cannot continue, for example because ctx
// was cancelled while pacing.
func (o *Orchestrator) RunTargets(ctx context.Context, run TargetRun) (domain.ResultData, error) {
	if run.Action == nil {
		return nil, ErrNoAction
	}
	log := logger.FromContextOrDefault(ctx, o.logger).With(
		slog.Int64("owner_id", run.OwnerID),
		slog.String("content_identity", run.ContentIdentity))

	outcome := &runOutcome{
		posted:  []string{},
		skipped: []string{},
		failed:  map[string]string{},
		refs:    map[string]string{},
	}

	for _, target := range run.targets() {
		tlog := log.With(slog.String("target", target))

		if strings.TrimSpace(target) == "" {
			tlog.Warn("skipping unresolved target")
			outcome.failed[target] = ErrUnresolvedTarget.Error()
			continue
		}

		done, err := dispatch.Ask[bool](ctx, o.bus, CheckTargetCompletion{
			OwnerID:         run.OwnerID,
			ContentIdentity: run.ContentIdentity,
			Target:          target,
		})
		if err != nil {
			tlog.Error("failed to check target completion", slog.String("error", err.Error()))
			outcome.failed[target] = fmt.Sprintf("completion check failed: %v", err)
			continue
		}
		if done {
			tlog.Info("target already completed, skipping")
			outcome.skipped = append(outcome.skipped, target)
			continue
		}

		if err := o.pacer.Wait(ctx); err != nil {
			return outcome.resultData(), fmt.Errorf("pacing interrupted before %q: %w", target, err)
		}

		ref, err := attempt(ctx, run.Action, target)
		if err != nil {
			tlog.Error("action failed for target", slog.String("error", err.Error()))
			outcome.failed[target] = err.Error()
			continue
		}

		outcome.refs[target] = ref
		if _, err := dispatch.Send[bool](ctx, o.bus, RecordTargetCompletion{
			OwnerID:         run.OwnerID,
			ContentIdentity: run.ContentIdentity,
			Target:          target,
			ExternalRef:     ref,
		}); err != nil {
			tlog.Error("action succeeded but completion was not recorded",
				slog.String("external_ref", ref),
				slog.String("error", err.Error()))
			outcome.failed[target] = fmt.Sprintf("completion not recorded: %v", err)
			continue
		}

		tlog.Info("target completed", slog.String("external_ref", ref))
		outcome.posted = append(outcome.posted, target)
	}

	log.Info("target run finished",
		slog.Int("posted", len(outcome.posted)),
		slog.Int("skipped", len(outcome.skipped)),
		slog.Int("failed", len(outcome.failed)))
	return outcome.resultData(), nil
}

func attempt(ctx context.Context, action Action, target string) (ref string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrWorkPanicked, p)
		}
	}()
	return action(ctx, target)
}
