// Package docs registers the OpenAPI document served at /swagger. It is
// maintained by hand alongside the handler annotations; update both when a
// route changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/auth/signup": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "User signup",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Signup request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"username": {
									"type": "string"
								},
								"email": {
									"type": "string"
								},
								"password": {
									"type": "string"
								},
								"birthday": {
									"type": "string"
								},
								"gender": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/auth/login": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "User login",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Login credentials",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"username": {
									"type": "string"
								},
								"password": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/auth/logout": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Logout",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized"
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/users/me": {
			"get": {
				"tags": [
					"users"
				],
				"summary": "Current user",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/blogs": {
			"get": {
				"tags": [
					"blogs"
				],
				"summary": "List blogs",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			},
			"post": {
				"tags": [
					"blogs"
				],
				"summary": "Create blog",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					}
				},
				"consumes": [
					"multipart/form-data"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "title",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "content",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "tags",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "existingImage",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"name": "image",
						"in": "formData"
					}
				]
			}
		},
		"/blogs/mine": {
			"get": {
				"tags": [
					"blogs"
				],
				"summary": "List my blogs",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized"
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/blogs/{id}": {
			"get": {
				"tags": [
					"blogs"
				],
				"summary": "Get blog",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			},
			"put": {
				"tags": [
					"blogs"
				],
				"summary": "Update blog",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					},
					"403": {
						"description": "Forbidden"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"consumes": [
					"multipart/form-data"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"name": "title",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "content",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "tags",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "existingImage",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"name": "image",
						"in": "formData"
					}
				]
			},
			"delete": {
				"tags": [
					"blogs"
				],
				"summary": "Delete blog",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized"
					},
					"403": {
						"description": "Forbidden"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/blogs/{id}/comments": {
			"get": {
				"tags": [
					"comments"
				],
				"summary": "List comments",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			},
			"post": {
				"tags": [
					"comments"
				],
				"summary": "Add comment",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Comment",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"text": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/blogs/{id}/comments/{commentId}": {
			"put": {
				"tags": [
					"comments"
				],
				"summary": "Edit comment",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					},
					"403": {
						"description": "Forbidden"
					},
					"404": {
						"description": "Not Found"
					},
					"409": {
						"description": "Conflict"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Comment ID",
						"name": "commentId",
						"in": "path",
						"required": true
					},
					{
						"description": "Comment",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"text": {
									"type": "string"
								}
							}
						}
					}
				]
			},
			"delete": {
				"tags": [
					"comments"
				],
				"summary": "Delete comment",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized"
					},
					"403": {
						"description": "Forbidden"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Comment ID",
						"name": "commentId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/blogs/{id}/comments/{commentId}/replies": {
			"post": {
				"tags": [
					"comments"
				],
				"summary": "Add reply",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					},
					"404": {
						"description": "Not Found"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Comment ID",
						"name": "commentId",
						"in": "path",
						"required": true
					},
					{
						"description": "Reply",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"text": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/images": {
			"post": {
				"tags": [
					"images"
				],
				"summary": "Upload image",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request"
					},
					"401": {
						"description": "Unauthorized"
					},
					"503": {
						"description": "Service Unavailable"
					}
				},
				"consumes": [
					"multipart/form-data"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "file",
						"name": "image",
						"in": "formData",
						"required": true
					}
				]
			}
		},
		"/ai/correct": {
			"post": {
				"tags": [
					"ai"
				],
				"summary": "Correct text",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					},
					"503": {
						"description": "Service Unavailable"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Text",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"text": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/ai/spellcheck": {
			"post": {
				"tags": [
					"ai"
				],
				"summary": "Spellcheck word",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					},
					"503": {
						"description": "Service Unavailable"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Word",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"word": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/ai/generate": {
			"post": {
				"tags": [
					"ai"
				],
				"summary": "Generate text",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request"
					},
					"503": {
						"description": "Service Unavailable"
					}
				},
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Prompt",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"topic": {
									"type": "string"
								},
								"tone": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and the JWT token.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Writeflow API",
	Description:      "Blogging API with threaded comments and AI writing tools.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
