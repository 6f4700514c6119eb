package users

func seedUsers() []User {
	return []User{
		{
			ID:          "1",
			Username:    "admin",
			Name:        "系统管理员",
			Email:       "admin@example.com",
			Phone:       "13800138001",
			Role:        RoleAdmin,
			Status:      StatusActive,
			Avatar:      "https://cube.elemecdn.com/0/88/03b0d39583f48206768a7534e55bcpng.png",
			Bio:         "系统管理员，负责整个系统的管理和维护工作。",
			Groups:      []string{"development", "operations"},
			Permissions: []string{"user:read", "user:write", "user:delete", "system:admin"},
			CreatedAt:   "2024-01-01T00:00:00Z",
			UpdatedAt:   "2024-01-15T10:30:00Z",
			LastLoginAt: "2024-01-15T10:30:00Z",
			LoginCount:  156,
		},
		{
			ID:          "2",
			Username:    "manager001",
			Name:        "张经理",
			Email:       "zhang.manager@example.com",
			Phone:       "13800138002",
			Role:        RoleManager,
			Status:      StatusActive,
			Avatar:      "https://cube.elemecdn.com/9/c2/f0ee8a3c7c9638a54940382568c9dpng.png",
			Bio:         "部门经理，负责团队管理和项目协调工作。",
			Groups:      []string{"product", "testing"},
			Permissions: []string{"user:read", "user:write", "project:manage"},
			CreatedAt:   "2024-01-02T08:00:00Z",
			UpdatedAt:   "2024-01-14T16:20:00Z",
			LastLoginAt: "2024-01-14T16:20:00Z",
			LoginCount:  89,
		},
		{
			ID:          "3",
			Username:    "developer001",
			Name:        "李开发",
			Email:       "li.developer@example.com",
			Phone:       "13800138003",
			Role:        RoleUser,
			Status:      StatusActive,
			Avatar:      "https://cube.elemecdn.com/3/7c/3ea6beec64369c2642b92c6726f1epng.png",
			Bio:         "前端开发工程师，专注于 Vue.js 和 TypeScript 开发。",
			Groups:      []string{"development"},
			Permissions: []string{"user:read", "project:read"},
			CreatedAt:   "2024-01-03T09:00:00Z",
			UpdatedAt:   "2024-01-13T14:15:00Z",
			LastLoginAt: "2024-01-13T14:15:00Z",
			LoginCount:  234,
		},
		{
			ID:          "4",
			Username:    "tester001",
			Name:        "王测试",
			Email:       "wang.tester@example.com",
			Phone:       "13800138004",
			Role:        RoleUser,
			Status:      StatusActive,
			Avatar:      "https://cube.elemecdn.com/6/94/4d3ea53c084bad6931a56d5158a48png.png",
			Bio:         "测试工程师，负责产品质量保证和自动化测试。",
			Groups:      []string{"testing"},
			Permissions: []string{"user:read", "test:write"},
			CreatedAt:   "2024-01-04T10:00:00Z",
			UpdatedAt:   "2024-01-12T11:30:00Z",
			LastLoginAt: "2024-01-12T11:30:00Z",
			LoginCount:  167,
		},
		{
			ID:          "5",
			Username:    "designer001",
			Name:        "陈设计",
			Email:       "chen.designer@example.com",
			Phone:       "13800138005",
			Role:        RoleUser,
			Status:      StatusInactive,
			Avatar:      "https://cube.elemecdn.com/e/fd/0fc7d20532fdaf769a25683617711png.png",
			Bio:         "UI/UX 设计师，专注于用户体验设计和界面优化。",
			Groups:      []string{"product"},
			Permissions: []string{"user:read", "design:write"},
			CreatedAt:   "2024-01-05T11:00:00Z",
			UpdatedAt:   "2024-01-11T09:45:00Z",
			LastLoginAt: "2024-01-10T15:20:00Z",
			LoginCount:  45,
		},
		{
			ID:          "6",
			Username:    "operator001",
			Name:        "刘运维",
			Email:       "liu.operator@example.com",
			Phone:       "13800138006",
			Role:        RoleUser,
			Status:      StatusActive,
			Avatar:      "https://cube.elemecdn.com/a/3f/3302e58f9a181d2509f3dc0899b9apng.png",
			Bio:         "运维工程师，负责系统部署、监控和维护工作。",
			Groups:      []string{"operations"},
			Permissions: []string{"user:read", "system:monitor"},
			CreatedAt:   "2024-01-06T12:00:00Z",
			UpdatedAt:   "2024-01-10T13:25:00Z",
			LastLoginAt: "2024-01-10T13:25:00Z",
			LoginCount:  78,
		},
	}
}

func seedActivities() []Activity {
	return []Activity{
		{ID: "1", UserID: "1", Title: "用户登录", Description: "从 IP 192.168.1.100 登录系统", Type: "login", CreatedAt: "2024-01-15T10:30:00Z"},
		{ID: "2", UserID: "1", Title: "修改密码", Description: "用户修改了登录密码", Type: "security", CreatedAt: "2024-01-14T15:20:00Z"},
		{ID: "3", UserID: "1", Title: "更新资料", Description: "用户更新了个人资料信息", Type: "profile", CreatedAt: "2024-01-13T09:15:00Z"},
		{ID: "4", UserID: "2", Title: "创建项目", Description: "创建了新项目\"电商系统重构\"", Type: "project", CreatedAt: "2024-01-14T16:20:00Z"},
		{ID: "5", UserID: "3", Title: "提交代码", Description: "向主分支提交了 15 个文件的修改", Type: "development", CreatedAt: "2024-01-13T14:15:00Z"},
	}
}
