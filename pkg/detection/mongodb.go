package detection

import (
	"github.com/activecm/snitch/resources"
	"github.com/globalsign/mgo"
)

type mongoSink struct {
	res *resources.Resources
}

//NewMongoSink persists detection events to the detections collection
func NewMongoSink(res *resources.Resources) Sink {
	return &mongoSink{
		res: res,
	}
}

//Persist implements Sink
func (s *mongoSink) Persist(event *Event) error {
	session := s.res.DB.Session.Copy()
	defer session.Close()

	return session.DB(s.res.DB.GetSelectedDB()).
		C(s.res.Config.T.Detection.DetectionsTable).
		Insert(event)
}

//CreateIndexes sets up the detections collection
func CreateIndexes(res *resources.Resources) error {
	collectionName := res.Config.T.Detection.DetectionsTable
	if res.DB.CollectionExists(collectionName) {
		return nil
	}

	indexes := []mgo.Index{
		{Key: []string{"event_id"}, Unique: true},
		{Key: []string{"ts"}},
		{Key: []string{"severity"}},
		{Key: []string{"dest_ip"}},
		{Key: []string{"process_name"}},
	}

	return res.DB.CreateCollection(collectionName, indexes)
}

//DeleteAll clears the detections collection and reports how many
//events were removed
func DeleteAll(res *resources.Resources) (int, error) {
	session := res.DB.Session.Copy()
	defer session.Close()

	info, err := session.DB(res.DB.GetSelectedDB()).
		C(res.Config.T.Detection.DetectionsTable).
		RemoveAll(nil)
	if err != nil {
		return 0, err
	}
	return info.Removed, nil
}
