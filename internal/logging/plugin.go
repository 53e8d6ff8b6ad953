// ABOUTME: Plugin detection for admin request logging.
// ABOUTME: Determines which plugin an admin API request targets based on URL path.

package logging

import "strings"

// PluginFromPath returns the plugin name addressed by an admin path such as
// /plugins/{name}/unload, or "" when the path is not plugin-scoped.
func PluginFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/plugins/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
