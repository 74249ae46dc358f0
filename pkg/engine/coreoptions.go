package engine

import "github.com/drgolem/audioengine/pkg/types"

// GetCoreOptionApplyPolicy reports whether name takes effect immediately
// on the current decoder or requires reopening it, mirroring the
// original engine's AudioEngineCoreOptions.cpp pattern of a core
// declaring its own per-option apply semantics. A decoder that doesn't
// implement types.OptionPolicyProvider is conservatively assumed to
// require a reopen for every option.
func (e *Engine) GetCoreOptionApplyPolicy(name string) types.CoreOptionApplyPolicy {
	e.decoderMu.Lock()
	defer e.decoderMu.Unlock()
	return e.coreOptionApplyPolicyLocked(name)
}

// coreOptionApplyPolicyLocked requires decoderMu to already be held.
func (e *Engine) coreOptionApplyPolicyLocked(name string) types.CoreOptionApplyPolicy {
	if e.decoder == nil {
		return types.ApplyRequiresReopen
	}
	if provider, ok := e.decoder.(types.OptionPolicyProvider); ok {
		return provider.GetCoreOptionApplyPolicy(name)
	}
	return types.ApplyRequiresReopen
}

// SetCoreOption applies name=value to the current decoder immediately
// when its apply policy says so; otherwise it is cached and applied the
// next time a decoder is opened via SetSource, matching the original's
// behavior of deferring option application across a reopen.
func (e *Engine) SetCoreOption(name, value string) error {
	e.optionsMu.Lock()
	e.cachedOptions[name] = value
	e.optionsMu.Unlock()

	e.decoderMu.Lock()
	defer e.decoderMu.Unlock()
	if e.decoder == nil {
		return nil
	}
	if e.coreOptionApplyPolicyLocked(name) == types.ApplyRequiresReopen {
		return nil
	}
	return e.decoder.SetOption(name, value)
}

// applyCachedOptionsLocked replays every previously set core option onto
// a freshly opened decoder. Called with decoderMu held, from SetSource.
func (e *Engine) applyCachedOptionsLocked() {
	e.optionsMu.Lock()
	defer e.optionsMu.Unlock()
	for name, value := range e.cachedOptions {
		_ = e.decoder.SetOption(name, value)
	}
}
