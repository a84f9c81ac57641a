// Package plugin hosts Lua plugins that register route handlers.
//
// A plugin is a Lua script named in the router manifest. When loaded, the
// script sees a global router module:
//
//	router.plugin     -- the plugin name
//	router.version    -- the plugin's default handler version
//	router.DECLINE    -- return this to pass the call to the next candidate
//	router.handle(path, fn)
//	router.handle(path, version, fn)
//	router.handle{path = "...", version = 2, id = "...", fn = fn}
//
// router.handle returns the handler's identifier. Without an explicit id
// the identifier is "<plugin>:<path>@<version>".
//
// A handler is called with the dispatch parameter converted to Lua and
// may return:
//
//	value             -- the dispatch result
//	router.DECLINE    -- decline
//	nil, err          -- fail the dispatch with a *HandlerError
//
// A Lua runtime error fails the dispatch with a *ScriptError.
//
// Example plugin:
//
//	router.handle("app.user.profile", function(req)
//	  if req.beta then
//	    return router.DECLINE
//	  end
//	  return { name = req.name, plugin = router.plugin }
//	end)
//
// # Manager
//
// The Manager loads the plugins of a manifest into one router, applies the
// manifest's blocked set, and with Watch keeps both in sync with the
// manifest file as it changes:
//
//	mgr := plugin.NewManager(router, plugin.WithLogger(logger))
//	defer mgr.Close()
//
//	mgr.Apply(mf)
//	if err := mgr.LoadAll(ctx, mf); err != nil {
//	    logger.Warn("some plugins failed to load", zap.Error(err))
//	}
//	go mgr.Watch(ctx, mf.Path)
//
// Handlers are registered only after their script ran to completion, and
// unloading a plugin unregisters every handler it registered.
package plugin
