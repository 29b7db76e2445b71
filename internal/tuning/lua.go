// SPDX-License-Identifier: MIT
package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// LuaFunction is the global a tuning script must define:
//
//	function frequency(index, key, reference)
//	  return reference * 2 ^ ((index - 24) / 12)
//	end
const LuaFunction = "frequency"

var ErrMissingLuaFunction = errors.New("tuning: script does not define function " + LuaFunction)

// LuaRule evaluates a user tuning script. It is used once at startup and is
// not safe for concurrent use.
type LuaRule struct {
	state     *lua.LState
	fn        lua.LValue
	reference float64
}

// NewLuaRule loads script, which is either Lua source or "@path" to a file.
func NewLuaRule(script string, reference float64) (*LuaRule, error) {
	if strings.HasPrefix(script, "@") {
		src, err := os.ReadFile(strings.TrimPrefix(script, "@"))
		if err != nil {
			return nil, fmt.Errorf("tuning: failed to read script: %w", err)
		}
		script = string(src)
	}
	if strings.TrimSpace(script) == "" {
		return nil, ErrMissingLuaFunction
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// Only math is needed; no io/os access for tuning scripts.
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("tuning: failed to open lua library %s: %w", pair.name, err)
		}
	}

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("tuning: failed to load script: %w", err)
	}
	fn := L.GetGlobal(LuaFunction)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, ErrMissingLuaFunction
	}

	return &LuaRule{state: L, fn: fn, reference: reference}, nil
}

// Frequency calls frequency(index, key, reference) in the script.
func (r *LuaRule) Frequency(index int, key rune) (float64, error) {
	err := r.state.CallByParam(lua.P{
		Fn:      r.fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(index), lua.LString(string(key)), lua.LNumber(r.reference))
	if err != nil {
		return 0, fmt.Errorf("tuning: script error: %w", err)
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("tuning: %s returned %s, want number", LuaFunction, ret.Type())
	}
	return float64(n), nil
}

// Close releases the interpreter.
func (r *LuaRule) Close() {
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
}
