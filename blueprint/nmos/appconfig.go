package nmos

import (
	"encoding/json"
	"fmt"

	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/stack"
)

const (
	appName     = "nmos-test"
	appEnv      = "prod"
	appClientID = "1"
)

// A profile is a hosted configuration delivered to one of the services.
type profile struct {
	// prefix is the env namespace the sidecar reads its settings from.
	prefix string

	// stem prefixes the node names.
	stem string

	// config is the configuration profile name.
	config  string
	content string
}

func profiles(p Params) []profile {
	return []profile{
		{
			prefix:  "NMOS_TEST_",
			stem:    "nmos-test",
			config:  "nmos-test-user-config",
			content: testConfig(p),
		},
		{
			prefix: "EASY_NMOS_",
			stem:   "nmos-registry",
			config: "easy-nmos-config",
			content: mustJSON(map[string]interface{}{
				"pri":                          10,
				"logging_level":                0,
				"http_trace":                   false,
				"label":                        "nvidia-container",
				"http_port":                    p.RegistryPort,
				"query_ws_port":                8011,
				"registration_expiry_interval": 12,
				"domain":                       p.Domain,
			}),
		},
		{
			prefix: "EASY_NMOS_NODE_",
			stem:   "nmos-node",
			config: "easy-nmos-node-config",
			content: mustJSON(map[string]interface{}{
				"logging_level":  0,
				"http_port":      p.NodePort,
				"events_ws_port": 11001,
				"label":          "nvidia-container-node",
				"how_many":       5,
				"domain":         p.Domain,
			}),
		},
	}
}

func testConfig(p Params) string {
	return fmt.Sprintf(`from . import Config as CONFIG

# Domain name to use for the local DNS server and mock Node.
# This must match the domain name used for certificates in HTTPS mode.
CONFIG.DNS_DOMAIN = %q

# Lowest of the ports used by the mock services, which also runs the GUI.
CONFIG.PORT_BASE = %d
`, p.Domain, p.TestPort)
}

func mustJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		panic(err)
	}
	return string(b)
}

// buildAppConfig adds the configuration store. It returns the unit and the
// configuration keys written for the sidecars.
func buildAppConfig(b *stack.Builder, p Params) (*stack.Unit, []string) {
	u := b.Unit(UnitAppConfig)

	pp := profiles(p)
	var keys []string
	for _, pr := range pp {
		ns := u.Env(pr.prefix)
		ns.Set("APPLICATION", appName)
		ns.Set("ENV", appEnv)
		ns.Set("CONFIG", pr.config)
		ns.Set("CLIENT_ID", appClientID)
		keys = append(keys, ns.Keys()...)
	}

	app := u.Add("nmos-test-appconfig", graph.KindConfigApplication, attrs{
		"name": expr.MustParse("env.NMOS_TEST_APPLICATION"),
	})
	env := u.Add("nmos-test-prod", graph.KindConfigEnvironment, attrs{
		"application_id": ref(app),
		"name":           expr.MustParse("env.NMOS_TEST_ENV"),
	})
	strategy := u.Add("nmos-test-appconfig-deployment-strategy", graph.KindConfigStrategy, attrs{
		"deployment_duration_in_minutes": expr.Number(0),
		"growth_factor":                  expr.Number(100),
		"name":                           expr.String("Custom.AllAtOnce"),
		"replicate_to":                   expr.String("NONE"),
	})

	// AppConfig runs one deployment per environment at a time, so each
	// deployment waits for the previous one to complete.
	var prev string
	for _, pr := range pp {
		prof := u.Add(pr.stem+"-config-profile", graph.KindConfigProfile, attrs{
			"application_id": ref(app),
			"name":           expr.MustParse("env." + pr.prefix + "CONFIG"),
			"location_uri":   expr.String("hosted"),
		})
		version := u.Add(pr.stem+"-config-profile-version", graph.KindConfigVersion, attrs{
			"application_id":           ref(app),
			"configuration_profile_id": ref(prof),
			"content_type":             expr.String("text/plain"),
			"content":                  expr.String(pr.content),
		})
		deploy := u.Add(pr.stem+"-appconfig-deployment", graph.KindConfigDeployment, attrs{
			"application_id":           ref(app),
			"environment_id":           ref(env),
			"configuration_profile_id": ref(prof),
			"configuration_version":    expr.String("1"),
			"deployment_strategy_id":   ref(strategy),
		})
		b.DependsOn(deploy, version)
		b.Gate(deploy, fmt.Sprintf("deployment of %s is complete", pr.config))
		if prev != "" {
			b.ReadyAfter(deploy, prev)
		}
		prev = deploy
	}
	return u, keys
}
