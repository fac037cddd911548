// Package redis wraps go-redis with the service's logging, configuration
// and component lifecycle. The rate limiter uses it as a shared store when
// several API instances sit behind one load balancer.
//
//	redis:
//	  enabled: true
//	  addr: "localhost:6379"
package redis
