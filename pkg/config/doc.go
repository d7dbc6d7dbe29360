// Package config provides configuration types and loading for mockhost.
//
// A configuration file is a YAML or JSON document with optional server
// settings and a list of endpoints:
//
//	version: "1"
//	server:
//	  port: 8080
//	  logLevel: info
//	endpoints:
//	  - method: GET
//	    path: /users/:id
//	    variants:
//	      - name: found
//	        isDefault: true
//	        bodyType: template
//	        body: {id: ":id", name: "Ada"}
//	      - name: slow
//	        priority: 1
//	        delay: 250
//	        failRate: 10
//	        rules:
//	          - {source: header, field: X-Mode, operator: equals, value: slow}
//
// Loading a file:
//
//	file, err := config.LoadFromFile("mockhost.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	endpoints, err := file.ToEndpoints()
//
// Before decoding, ${VAR} and ${VAR:-default} references are expanded from
// the environment and the document is checked against an embedded JSON
// Schema. In configuration files failRate is a percentage (0-100); it is
// converted to a fraction on the way to mock.Endpoint.
//
// Files may pull in further endpoint files with the include key, which takes
// doublestar glob patterns relative to the including file:
//
//	include:
//	  - mocks/**/*.yaml
package config
