package transform

import "github.com/caldera-build/resolver/artifact"

// deriveScope computes the effective scope of a dependency declared with
// declared scope beneath a parent already resolved to parentScope. A
// declared system scope is kept, and a child of a system-scoped parent
// keeps its own declared scope; otherwise the wider (weaker) of the two
// scopes wins, matching artifact.Scope.Narrower's ranking.
func deriveScope(parentScope, declared artifact.Scope) artifact.Scope {
	if parentScope == artifact.ScopeSystem {
		return declared
	}
	if declared == artifact.ScopeSystem {
		return artifact.ScopeSystem
	}
	if parentScope.Narrower(declared) {
		return declared
	}
	return parentScope
}

// narrowestScope reduces a conflict group's observed scopes to the one
// that wins scope selection: narrowest of all, system overriding both.
func narrowestScope(scopes []artifact.Scope) artifact.Scope {
	if len(scopes) == 0 {
		return artifact.ScopeCompile
	}
	winner := scopes[0]
	for _, s := range scopes[1:] {
		if s.Narrower(winner) {
			winner = s
		}
	}
	return winner
}
