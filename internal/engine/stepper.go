package engine

// run steps until running is empty. Nested calls, from a feedback handler
// that triggers, share the outermost call's quota.
func (p *Program) run() error {
	if p.depth == 0 {
		p.quota.Reset()
	}
	p.depth++
	defer func() { p.depth-- }()

	for p.running.len() > 0 {
		if err := p.step(); err != nil {
			return err
		}
	}
	return nil
}

// step performs one synchronization pass:
//  1. resume every running strand once, parking it in pending or dropping it
//  2. collect candidates from pending requests and the pending block idioms
//  3. let the strategy pick one unblocked candidate
//  4. promote every pending strand that requested, waited for, or is
//     interrupted by the selected event
//  5. publish the select message
func (p *Program) step() error {
	for {
		b, ok := p.running.first()
		if !ok {
			break
		}
		p.running.remove(b.name)

		rules, alive, err := p.resume(b)
		if err != nil {
			if !p.faultIsolation {
				p.logger.Error("strand panicked", "strand", b.name, "error", err)
				return err
			}
			p.isolate(b, err)
			continue
		}
		if !alive {
			p.logger.Debug("strand terminated", "strand", b.name)
			continue
		}
		b.rules = rules
		p.pending.set(b)
	}

	pending := p.pending.list()
	var (
		candidates []Candidate
		blocked    []Idiom
	)
	for _, b := range pending {
		blocked = append(blocked, b.rules.Block...)
		for _, req := range b.rules.Request {
			candidates = append(candidates, Candidate{
				Strand:   b.name,
				Priority: b.priority,
				Trigger:  b.trigger,
				Event:    req.event(),
				template: req.Template,
			})
		}
	}

	selected, ok := p.strategy.Select(candidates, blocked)

	if p.debug || p.snapshots > 0 {
		var sel *Candidate
		if ok {
			sel = &selected
		}
		snap := buildSnapshot(candidates, pending, sel)
		if err := p.stream.Publish(Message{Kind: KindState, Snapshot: snap}); err != nil {
			return err
		}
	}

	if !ok {
		p.logger.Debug("no selectable event",
			"candidates", len(candidates),
			"pending", len(pending),
		)
		return nil
	}

	if err := p.quota.Check(p.sessionID); err != nil {
		p.logger.Error("max steps quota exceeded",
			"steps", p.quota.Current(),
			"limit", p.quota.MaxSteps(),
			"event", selected.Event.Type,
		)
		return NewQuotaError(p.sessionID, p.quota.Current(), p.quota.MaxSteps(), err)
	}

	for _, b := range pending {
		interrupted := matchesAny(b.rules.Interrupt, selected.Event)
		if interrupted {
			b.stop()
			p.logger.Debug("strand interrupted", "strand", b.name, "event", selected.Event.Type)
		}
		if interrupted || b.rules.requested(selected) || matchesAny(b.rules.WaitFor, selected.Event) {
			p.pending.remove(b.name)
			p.running.set(b)
		}
	}

	seq := p.clock.Next()
	p.logger.Debug("event selected",
		"type", selected.Event.Type,
		"strand", selected.Strand,
		"priority", selected.Priority,
		"seq", seq,
	)

	msg := Message{Kind: KindSelect, Seq: seq, Event: selected.Event, Strand: selected.Strand}
	if err := p.stream.Publish(msg); err != nil {
		p.logger.Error("feedback failed", "type", selected.Event.Type, "seq", seq, "error", err)
		_ = p.stream.Publish(Message{Kind: KindFeedbackError, Seq: seq, Event: selected.Event, Err: err})
		return NewFeedbackError(selected.Event.Type, err)
	}
	return nil
}

// resume advances b's coroutine by one yield. A panic inside the strand is
// returned as a STRAND_PANIC error; the coroutine is finished afterwards.
func (p *Program) resume(b *bid) (rules RuleSet, alive bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rules, alive = RuleSet{}, false
			err = NewStrandPanicError(b.name, r)
		}
	}()
	rules, alive = b.next()
	return rules, alive, nil
}

// isolate drops a failed strand and reports it without stopping the step.
func (p *Program) isolate(b *bid, err error) {
	p.logger.Error("strand terminated after panic", "strand", b.name, "error", err)
	b.stop()
	_ = p.stream.Publish(Message{Kind: KindStrandError, Strand: b.name, Err: err})
}
