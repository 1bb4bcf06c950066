package geojson

// skeleton writes the document envelope: the FeatureCollection object with its
// "features" array, and the Feature objects.
type skeleton struct{ Base }

func (skeleton) Priority() int { return PrioritySkeleton }

func (skeleton) OnStart(ctx Context, next func() error) error {
	s := ctx.Session
	if !s.IsCollection() {
		return next()
	}

	out := s.Direct()
	out.WriteStartObject()
	out.WriteFieldName("type")
	out.WriteString("FeatureCollection")
	if err := next(); err != nil {
		return err
	}
	out.WriteFieldName("features")
	out.WriteStartArray()

	return nil
}

func (skeleton) OnEnd(ctx Context, next func() error) error {
	s := ctx.Session
	if !s.IsCollection() {
		return next()
	}

	out := s.Direct()
	out.WriteEndArray()
	if err := next(); err != nil {
		return err
	}
	out.WriteEndObject()

	return nil
}

func (skeleton) OnFeatureStart(ctx Context, next func() error) error {
	s := ctx.Session
	out := s.Direct()
	out.WriteStartObject()
	out.WriteFieldName("type")
	out.WriteString("Feature")
	s.featureDepth = out.Depth()

	return next()
}

func (skeleton) OnFeatureEnd(ctx Context, next func() error) error {
	if err := next(); err != nil {
		return err
	}
	ctx.Session.Direct().WriteEndObject()

	return nil
}
