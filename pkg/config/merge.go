package config

import "dario.cat/mergo"

// mergeEngineDefaults merges a user-supplied partial EngineDefaults onto the
// built-in defaults; non-zero user fields win.
func mergeEngineDefaults(base EngineDefaults, user *EngineDefaults) (EngineDefaults, error) {
	if user == nil {
		return base, nil
	}
	if err := mergo.Merge(&base, *user, mergo.WithOverride); err != nil {
		return base, err
	}
	return base, nil
}

func mergeDecayDefaults(base DecayDefaults, user *DecayDefaults) (DecayDefaults, error) {
	if user == nil {
		return base, nil
	}
	if err := mergo.Merge(&base, *user, mergo.WithOverride); err != nil {
		return base, err
	}
	return base, nil
}

func mergeHTTPDefaults(base HTTPDefaults, user *HTTPDefaults) (HTTPDefaults, error) {
	if user == nil {
		return base, nil
	}
	if err := mergo.Merge(&base, *user, mergo.WithOverride); err != nil {
		return base, err
	}
	return base, nil
}
