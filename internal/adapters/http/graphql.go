package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/polyline"
)

// buildSchema creates the GraphQL schema wired to our services. Field names
// follow the JSON tags of the domain types so the default resolver applies.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"number":           &graphql.Field{Type: graphql.Int},
			"start_station_id": &graphql.Field{Type: graphql.String},
			"end_station_id":   &graphql.Field{Type: graphql.String},
			"start":            &graphql.Field{Type: coordinateType},
			"end":              &graphql.Field{Type: coordinateType},
		},
	})

	tripRouteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripRoute",
		Fields: graphql.Fields{
			"trip_id":         &graphql.Field{Type: graphql.String},
			"legs":            &graphql.Field{Type: graphql.NewList(legType)},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"bounds":          &graphql.Field{Type: boundsType},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: coordinateType},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"legs": &graphql.Field{
				Type:        tripRouteType,
				Description: "Stored legs of a trip",
				Args: graphql.FieldConfigArgument{
					"tripId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Legs.Route(p.Context, p.Args["tripId"].(string))
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "All stored stations ordered by ID",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.List(p.Context)
				},
			},
			"decodePolyline": &graphql.Field{
				Type:        tripRouteType,
				Description: "Decode an encoded polyline into legs",
				Args: graphql.FieldConfigArgument{
					"points":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"precision":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: polyline.DefaultPrecision},
					"startStationId": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"endStationId":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Legs.DecodeRoute(p.Args["points"].(string), p.Args["precision"].(int), domain.TripEndpoints{
						StartStationID: p.Args["startStationId"].(string),
						EndStationID:   p.Args["endStationId"].(string),
					})
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"convertTrip": &graphql.Field{
				Type:        tripRouteType,
				Description: "Fetch directions for a trip and replace its legs",
				Args: graphql.FieldConfigArgument{
					"tripId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Legs.ConvertTrip(p.Context, p.Args["tripId"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
