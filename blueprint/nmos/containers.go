package nmos

import (
	"fmt"
	"strings"

	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/stack"
)

const (
	nodeSidecarLogs = "sidecar-log-group"
	nodeLogs        = "nmos-test-log-group"
	nodePolicy      = "AccessPolicy"
)

type volume struct {
	name string
	// host path; empty for a task scoped volume
	path string
}

type mount struct {
	path   string
	volume string
}

// A service is a primary container with a configuration sidecar behind a
// load balancer.
type service struct {
	taskDef  string
	primary  string
	sidecar  string
	service  string
	name     string
	dns      string
	lb       string
	listener string
	target   string
	sTarget  string

	image  string
	port   int
	launch string
	// memory reservation in MiB; 0 for none
	memory int

	action string
	extra  [][2]string

	logPrefix string
	volumes   []volume
	mounts    []mount
	sMounts   []mount
	// primary container mounts the sidecar's volumes
	volumesFrom bool
}

func services(p Params) []service {
	return []service{
		{
			taskDef:  "testingTaskDefinition",
			primary:  "testingContainer",
			sidecar:  "sidecarContainer",
			service:  "testingService",
			name:     "testing-service",
			dns:      "nmos-testing",
			lb:       "testingLoadBalancer",
			listener: "testingListener",
			target:   "testingTarget",
			sTarget:  "sidecarTarget",

			image:  p.TestImage,
			port:   p.TestPort,
			launch: "fargate",
			action: "test-config",

			logPrefix:   "Testing",
			volumes:     []volume{{name: "hostVolume"}},
			mounts:      []mount{{path: "/config", volume: "hostVolume"}},
			sMounts:     []mount{{path: "/config", volume: "hostVolume"}},
			volumesFrom: true,
		},
		{
			taskDef:  "registryDefinition",
			primary:  "registryContainer",
			sidecar:  "registrySidecarContainer",
			service:  "registryService",
			name:     "registry-service",
			dns:      "nmos-registry",
			lb:       "registryLoadBalancer",
			listener: "registryListener",
			target:   "registryTarget",
			sTarget:  "registrySidecarTarget",

			image:  p.NMOSImage,
			port:   p.RegistryPort,
			launch: "ec2",
			memory: 256,
			action: "registry-config",

			logPrefix: "Registry",
			volumes: []volume{
				{name: "registrySidecarHostVolume", path: "/easyregistry"},
				{name: "registryHostVolume", path: "/easyregistry/registry.json"},
			},
			mounts:  []mount{{path: "/home/registry.json", volume: "registryHostVolume"}},
			sMounts: []mount{{path: "/easyregistry", volume: "registrySidecarHostVolume"}},
		},
		{
			taskDef:  "nodeDefinition",
			primary:  "nodeContainer",
			sidecar:  "nodeSidecarContainer",
			service:  "nodeService",
			name:     "node-service",
			dns:      "nmos-virtnode",
			lb:       "nodeLoadBalancer",
			listener: "nodeListener",
			target:   "nodeTarget",
			sTarget:  "nodeSidecarTarget",

			image:  p.NMOSImage,
			port:   p.NodePort,
			launch: "ec2",
			memory: 256,
			action: "node-config",
			extra:  [][2]string{{"RUN_NODE", "TRUE"}},

			logPrefix: "Node",
			volumes: []volume{
				{name: "nodeSidecarHostVolume", path: "/easynode"},
				{name: "nodeHostVolume", path: "/easynode/node.json"},
			},
			mounts:  []mount{{path: "/home/node.json", volume: "nodeHostVolume"}},
			sMounts: []mount{{path: "/easynode", volume: "nodeSidecarHostVolume"}},
		},
	}
}

// Permissions the sidecars need to read their configuration and register
// with service discovery.
var policyActions = []string{
	"appconfig:GetConfiguration",
	"appconfig:StartConfigurationSession",
	"appconfig:GetLatestConfiguration",
	"servicediscovery:ListServices",
	"servicediscovery:ListInstances",
	"servicediscovery:DiscoverInstances",
}

// buildContainers adds the services. keys are the configuration keys the
// sidecars receive as environment variables.
func buildContainers(b *stack.Builder, p Params, keys []string) *stack.Unit {
	u := b.Unit(UnitContainers)

	u.Add(nodeSidecarLogs, graph.KindLogGroup, attrs{
		"removal_policy": expr.String("destroy"),
	})
	u.Add(nodeLogs, graph.KindLogGroup, attrs{
		"removal_policy": expr.String("destroy"),
	})
	u.Add(nodePolicy, graph.KindAccessPolicy, attrs{
		"actions":   expr.Strings(policyActions...),
		"resources": expr.Strings("*"),
	})

	for _, s := range services(p) {
		buildService(b, u, p, s, keys)
	}
	return u
}

func buildService(b *stack.Builder, u *stack.Unit, p Params, s service, keys []string) {
	u.Add(s.taskDef, graph.KindTaskDefinition, attrs{
		"launch_type":  expr.String(s.launch),
		"network_mode": expr.String("awsvpc"),
	})
	for _, v := range s.volumes {
		a := attrs{
			"task_definition": ref(s.taskDef),
			"name":            expr.String(v.name),
		}
		if v.path != "" {
			a["host_source_path"] = expr.String(v.path)
		}
		u.Add(v.name, graph.KindVolume, a)
	}

	env := environment(keys, append([][2]string{{"SIDECAR_ACTION", s.action}}, s.extra...))

	primary := attrs{
		"task_definition": ref(s.taskDef),
		"image":           expr.String(s.image),
		"environment":     env,
		"port_mappings":   expr.MustParse(fmt.Sprintf("[{ container_port = %d }]", s.port)),
		"log_group":       ref(nodeLogs),
		"stream_prefix":   expr.String(s.logPrefix),
		"mount_points":    mounts(s.mounts),
	}
	if s.volumesFrom {
		primary["volumes_from"] = expr.MustParse(fmt.Sprintf("[{ source_container = node[%q].name, read_only = true }]", s.sidecar))
	}
	if s.memory > 0 {
		primary["memory_reservation_mib"] = expr.Number(int64(s.memory))
	}
	u.Add(s.primary, graph.KindContainer, primary)

	sidecar := attrs{
		"task_definition": ref(s.taskDef),
		"image":           expr.String(p.SidecarImage),
		"environment":     env,
		"port_mappings":   expr.MustParse(fmt.Sprintf("[{ container_port = %d }]", p.SidecarPort)),
		"log_group":       ref(nodeSidecarLogs),
		"stream_prefix":   expr.String(s.logPrefix + "-Sidecar"),
		"mount_points":    mounts(s.sMounts),
		"health_check":    expr.Strings("CMD-SHELL", fmt.Sprintf("curl -f http://localhost:%d/ || exit 1", p.SidecarPort)),
	}
	if s.memory > 0 {
		sidecar["memory_reservation_mib"] = expr.Number(int64(s.memory))
	}
	u.Add(s.sidecar, graph.KindContainer, sidecar)

	// The primary container reads the configuration the sidecar fetched.
	b.Gate(s.sidecar, fmt.Sprintf("health check passes: curl -f http://localhost:%d/", p.SidecarPort))
	b.ReadyAfter(s.primary, s.sidecar)

	u.Add(s.dns, graph.KindDNSService, attrs{
		"name":      expr.String(s.dns),
		"namespace": ref(nodeNamespace),
		"dns_ttl":   expr.Number(10),
	})
	u.Add(s.service, graph.KindService, attrs{
		"cluster":            ref(nodeCluster),
		"task_definition":    ref(s.taskDef),
		"service_name":       expr.String(s.name),
		"launch_type":        expr.String(s.launch),
		"desired_count":      expr.Number(1),
		"task_role_policies": expr.MustParse(fmt.Sprintf("[node[%q].name]", nodePolicy)),
		"cloud_map_service":  ref(s.dns),
	})
	b.DependsOn(s.service, s.primary, s.sidecar)

	u.Add(s.lb, graph.KindLoadBalancer, attrs{
		"vpc":             ref(nodeVPC),
		"internet_facing": expr.Bool(true),
	})
	u.Add(s.listener, graph.KindListener, attrs{
		"load_balancer": ref(s.lb),
		"port":          expr.Number(80),
	})
	u.Add(s.target, graph.KindLoadBalancerTarget, attrs{
		"listener":       ref(s.listener),
		"port":           expr.Number(80),
		"service":        ref(s.service),
		"container_name": ref(s.primary),
		"container_port": expr.Number(int64(s.port)),
	})
	u.Add(s.sTarget, graph.KindLoadBalancerTarget, attrs{
		"listener":       ref(s.listener),
		"port":           expr.Number(80),
		"service":        ref(s.service),
		"container_name": ref(s.sidecar),
		"container_port": expr.Number(int64(p.SidecarPort)),
		"priority":       expr.Number(100),
		"conditions":     expr.MustParse(`[{ path_patterns = ["/sidecar/*"] }]`),
	})
}

// environment builds the container environment: every configuration key
// plus fixed values.
func environment(keys []string, fixed [][2]string) expr.Expression {
	from := make([]string, len(keys))
	for i, k := range keys {
		from[i] = fmt.Sprintf("%s = env.%s", k, k)
	}
	lit := make([]string, len(fixed))
	for i, kv := range fixed {
		lit[i] = fmt.Sprintf("%s = %q", kv[0], kv[1])
	}
	return expr.MustParse(fmt.Sprintf("merge({ %s }, { %s })", strings.Join(from, ", "), strings.Join(lit, ", ")))
}

func mounts(mm []mount) expr.Expression {
	items := make([]string, len(mm))
	for i, m := range mm {
		items[i] = fmt.Sprintf("{ container_path = %q, read_only = false, source_volume = node[%q].name }", m.path, m.volume)
	}
	return expr.MustParse("[" + strings.Join(items, ", ") + "]")
}
