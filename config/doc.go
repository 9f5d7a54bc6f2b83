// Package config loads stack descriptions from .hcl files on disk.
//
// The files are loaded using the Loader and decoded into a stack with
// Loader.Decode. A typical project may look something like this:
//
//	stack "demo" {}
//
//	unit "base" {
//	  env "BASE_" {
//	    DOMAIN = "nmos-test"
//	  }
//
//	  resource "network" "vpc" {
//	    max_azs = 2
//	  }
//	}
//
//	unit "services" {
//	  after = ["base"]
//
//	  resource "service" "api" {
//	    depends_on = ["vpc"]
//	    domain     = env.BASE_DOMAIN
//
//	    gate {
//	      predicate = "health check passes"
//	    }
//	  }
//	}
//
//	blueprint "nmos-testing" {
//	  domain = "nmos-test"
//	}
//
// Apart from depends_on, ready_after and the gate block, the body of a
// resource contains its attributes. Attributes may reference configuration
// keys with env.<KEY> and other resources with node.<name>; a node reference
// implies that the referenced resource is created first.
package config
