/*
Package runtime provides the execution contexts the dispatcher runs the
namespace inspector in.

Router namespaces live on the hosts running the L3 agent. On containerized
deployments the agent, and the named netns directory it manages, live inside
a container, so the inspector has to run inside that container to see them.

# Providers

ContainerdProvider:
  - Lists containerd containers whose ID contains a filter (default
    "neutron_agents") and whose task is running
  - Execs "<inspector_path> inspect --context <name>" inside the container,
    reusing the container's own process spec (user, env, capabilities)
  - Writes the inventory as JSON to the process stdin and decodes the
    InspectionReport from its stdout
  - Kills and deletes the exec process on every exit path

LocalProvider:
  - Exposes the local host as a single context
  - Runs the inspector in-process; used on bare-metal network nodes

# Errors

Every failure to reach a context, start the inspector, or decode its output
is a *ContextError. The dispatcher records it as a per-context failure and
keeps going with the other contexts.
*/
package runtime
