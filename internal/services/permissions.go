package services

// Capability tags granted through roles. A role may additionally bind
// policies to a tag; a tag without policies is unrestricted once granted.
const (
	PermCourseCreate = "course.create"
	PermCourseRead   = "course.read"
	PermCourseWrite  = "course.write"
	PermCourseDelete = "course.delete"
	PermLessonRead   = "lesson.read"
	PermLessonWrite  = "lesson.write"
	PermBlockWrite   = "block.write"
	PermRoleManage   = "role.manage"
	PermViewRebuild  = "view.rebuild"
)
