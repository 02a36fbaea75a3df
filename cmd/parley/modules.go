package main

// Compiled-in modules. Each registers itself with the core registry in
// its init function; only modules listed in the config are loaded.
import (
	_ "github.com/parley-chat/parley/internal/chat"
	_ "github.com/parley-chat/parley/internal/gateway"
	_ "github.com/parley-chat/parley/modules/memory/sqlite"
	_ "github.com/parley-chat/parley/modules/provider/anthropic"
	_ "github.com/parley-chat/parley/modules/provider/openai_compatible"
)
